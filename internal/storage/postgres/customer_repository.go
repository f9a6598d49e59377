package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// CustomerRepository — PostgreSQL-реализация domain.CustomerRepository.
type CustomerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт репозиторий клиентов.
func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{db: store.DB()}
}

// Upsert создаёт или переименовывает клиентов. Используется для начального наполнения.
func (r *CustomerRepository) Upsert(ctx context.Context, customers ...domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	for _, c := range customers {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO customers (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		`, c.ID, c.Name); err != nil {
			return fmt.Errorf("upsert customer %d: %w", c.ID, err)
		}
	}
	return nil
}

// FindByID возвращает клиента или domain.ErrCustomerNotFound.
func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var customer domain.Customer
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM customers WHERE id = $1`, id).
		Scan(&customer.ID, &customer.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return customer, nil
}

// CountOrdersSince считает заказы клиента с order_date >= since.
func (r *CustomerRepository) CountOrdersSince(ctx context.Context, customerID int64, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders WHERE customer_id = $1 AND order_date >= $2
	`, customerID, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders since: %w", err)
	}
	return count, nil
}

// HasAnyOrder сообщает, есть ли у клиента заказы.
func (r *CustomerRepository) HasAnyOrder(ctx context.Context, customerID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE customer_id = $1)
	`, customerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer orders: %w", err)
	}
	return exists, nil
}

// List возвращает страницу клиентов по возрастанию ID.
func (r *CustomerRepository) List(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Customer], error) {
	page, err := page.Normalize()
	if err != nil {
		return domain.PagedList[domain.Customer]{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return domain.PagedList[domain.Customer]{}, fmt.Errorf("count customers: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name FROM customers ORDER BY id LIMIT $1 OFFSET $2
	`, page.PageSize, page.Offset())
	if err != nil {
		return domain.PagedList[domain.Customer]{}, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Customer, 0, page.PageSize)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return domain.PagedList[domain.Customer]{}, fmt.Errorf("scan customer: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return domain.PagedList[domain.Customer]{}, fmt.Errorf("iterate customers: %w", err)
	}

	return domain.NewPagedList(items, total, page), nil
}

var _ domain.CustomerRepository = (*CustomerRepository)(nil)
