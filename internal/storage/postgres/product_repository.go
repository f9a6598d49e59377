package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// ProductRepository — PostgreSQL-реализация каталога товаров.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт репозиторий товаров.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{db: store.DB()}
}

// Upsert создаёт или обновляет товары.
func (r *ProductRepository) Upsert(ctx context.Context, products ...domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	for _, p := range products {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO products (id, name, price) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price
		`, p.ID, p.Name, p.Price); err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
	}
	return nil
}

// List возвращает страницу товаров по возрастанию ID.
func (r *ProductRepository) List(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Product], error) {
	page, err := page.Normalize()
	if err != nil {
		return domain.PagedList[domain.Product]{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return domain.PagedList[domain.Product]{}, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price FROM products ORDER BY id LIMIT $1 OFFSET $2
	`, page.PageSize, page.Offset())
	if err != nil {
		return domain.PagedList[domain.Product]{}, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Product, 0, page.PageSize)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return domain.PagedList[domain.Product]{}, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return domain.PagedList[domain.Product]{}, fmt.Errorf("iterate products: %w", err)
	}

	return domain.NewPagedList(items, total, page), nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
