package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// OrderRepository — простая in-memory реализация domain.OrderRepository.
type OrderRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  []domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{nextID: 1}
}

// Insert назначает заказу следующий ID и сохраняет копию.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = r.nextID
	order.OrderDate = order.OrderDate.UTC()
	r.nextID++
	r.items = append(r.items, order)
	return order, nil
}

// List возвращает страницу заказов по фильтру: новые первыми, при равной дате — больший ID первым.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter, page domain.PageRequest) (domain.PagedList[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.PagedList[domain.Order]{}, err
	}

	r.mu.RLock()
	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.Match(order) {
			matched = append(matched, order)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].OrderDate.Equal(matched[j].OrderDate) {
			return matched[i].OrderDate.After(matched[j].OrderDate)
		}
		return matched[i].ID > matched[j].ID
	})

	return domain.Paginate(matched, page)
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
