package domain

import (
	"context"
	"time"
)

// CustomerRepository описывает хранилище клиентов и сведений об их покупках.
type CustomerRepository interface {
	// FindByID возвращает клиента или ErrCustomerNotFound.
	FindByID(ctx context.Context, id int64) (Customer, error)
	// CountOrdersSince считает заказы клиента с OrderDate >= since.
	CountOrdersSince(ctx context.Context, customerID int64, since time.Time) (int, error)
	// HasAnyOrder сообщает, был ли у клиента хотя бы один заказ.
	HasAnyOrder(ctx context.Context, customerID int64) (bool, error)
	// List возвращает страницу клиентов, упорядоченных по ID.
	List(ctx context.Context, page PageRequest) (PagedList[Customer], error)
}

// OrderRepository — append-only хранилище заказов.
type OrderRepository interface {
	// Insert сохраняет заказ, назначает ID и возвращает сохранённую запись после фиксации.
	Insert(ctx context.Context, order Order) (Order, error)
	// List возвращает страницу заказов по фильтру, новые первыми.
	List(ctx context.Context, filter OrderFilter, page PageRequest) (PagedList[Order], error)
}

// ProductRepository отдаёт каталог товаров.
type ProductRepository interface {
	List(ctx context.Context, page PageRequest) (PagedList[Product], error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
// Enqueue выполняется отдельно от OrderRepository.Insert: атомарности заказа и события нет.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
	// DeleteSentBefore удаляет до limit доставленных сообщений, обновлённых раньше before.
	DeleteSentBefore(before time.Time, limit int) (int, error)
}
