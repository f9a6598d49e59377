package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// OrderRepository — PostgreSQL-реализация domain.OrderRepository.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт репозиторий заказов.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{db: store.DB()}
}

// Insert сохраняет заказ в транзакции и возвращает запись с ID, назначенным базой.
// Заказ несуществующего клиента отклоняется внешним ключом и возвращается как ErrCustomerNotFound.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (stored domain.Order, err error) {
	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stored = order
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, value, order_date)
		VALUES ($1, $2, $3)
		RETURNING id, value, order_date
	`, order.CustomerID, order.Value, order.OrderDate.UTC()).Scan(&stored.ID, &stored.Value, &stored.OrderDate)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			err = fmt.Errorf("customer %d: %w", order.CustomerID, domain.ErrCustomerNotFound)
			return domain.Order{}, err
		}
		err = fmt.Errorf("insert order: %w", err)
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit order: %w", err)
	}

	stored.OrderDate = stored.OrderDate.UTC()
	return stored, nil
}

// List возвращает страницу заказов: новые первыми, при равной дате — больший ID первым.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter, page domain.PageRequest) (domain.PagedList[domain.Order], error) {
	page, err := page.Normalize()
	if err != nil {
		return domain.PagedList[domain.Order]{}, err
	}

	where, args := orderFilterClause(filter)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return domain.PagedList[domain.Order]{}, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, customer_id, value, order_date
		FROM orders%s
		ORDER BY order_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedList[domain.Order]{}, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Order, 0, page.PageSize)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Value, &o.OrderDate); err != nil {
			return domain.PagedList[domain.Order]{}, fmt.Errorf("scan order: %w", err)
		}
		o.OrderDate = o.OrderDate.UTC()
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return domain.PagedList[domain.Order]{}, fmt.Errorf("iterate orders: %w", err)
	}

	return domain.NewPagedList(items, total, page), nil
}

// orderFilterClause строит WHERE с позиционными параметрами; пустой фильтр даёт пустую строку.
func orderFilterClause(filter domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC())
		conds = append(conds, fmt.Sprintf("order_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC())
		conds = append(conds, fmt.Sprintf("order_date < $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
