package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// CustomerRepository хранит клиентов в памяти, а историю покупок берёт из OrderRepository.
type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[int64]domain.Customer
	orders    domain.OrderRepository
}

// NewCustomerRepository создаёт хранилище клиентов поверх хранилища заказов.
func NewCustomerRepository(orders domain.OrderRepository, customers ...domain.Customer) *CustomerRepository {
	repo := &CustomerRepository{
		customers: make(map[int64]domain.Customer, len(customers)),
		orders:    orders,
	}
	for _, c := range customers {
		repo.customers[c.ID] = c
	}
	return repo
}

// Add регистрирует клиента, перезаписывая запись с тем же ID.
func (r *CustomerRepository) Add(customer domain.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[customer.ID] = customer
}

// FindByID возвращает клиента или ErrCustomerNotFound.
func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// CountOrdersSince считает заказы клиента с OrderDate >= since.
func (r *CustomerRepository) CountOrdersSince(ctx context.Context, customerID int64, since time.Time) (int, error) {
	return r.countOrders(ctx, domain.OrderFilter{CustomerID: customerID, From: since})
}

// HasAnyOrder сообщает, есть ли у клиента заказы.
func (r *CustomerRepository) HasAnyOrder(ctx context.Context, customerID int64) (bool, error) {
	count, err := r.countOrders(ctx, domain.OrderFilter{CustomerID: customerID})
	return count > 0, err
}

func (r *CustomerRepository) countOrders(ctx context.Context, filter domain.OrderFilter) (int, error) {
	// Нужен только TotalCount, поэтому запрашиваем страницу из одного элемента.
	page, err := r.orders.List(ctx, filter, domain.PageRequest{Page: 1, PageSize: 1})
	if err != nil {
		return 0, err
	}
	return page.TotalCount, nil
}

// List возвращает страницу клиентов по возрастанию ID.
func (r *CustomerRepository) List(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Customer], error) {
	if err := ctx.Err(); err != nil {
		return domain.PagedList[domain.Customer]{}, err
	}

	r.mu.RLock()
	all := make([]domain.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		all = append(all, c)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return domain.Paginate(all, page)
}

var _ domain.CustomerRepository = (*CustomerRepository)(nil)
