package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// PresentationZone — часовой пояс ответов API: фиксированный UTC-3 без перехода на летнее время.
var PresentationZone = time.FixedZone("BRT", -3*60*60)

// ToLocal переводит момент из UTC в PresentationZone. Сам момент времени не меняется.
func ToLocal(t time.Time) time.Time {
	return t.In(PresentationZone)
}

type orderResponse struct {
	ID         int64        `json:"id"`
	Value      domain.Money `json:"value"`
	CustomerID int64        `json:"customerId"`
	OrderDate  time.Time    `json:"orderDate"`
}

func newOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
		ID:         order.ID,
		Value:      order.Value,
		CustomerID: order.CustomerID,
		OrderDate:  ToLocal(order.OrderDate),
	}
}

type customerResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type productResponse struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name"`
	Price domain.Money `json:"price"`
}

type eligibilityResponse struct {
	CustomerID int64        `json:"customerId"`
	Value      domain.Money `json:"value"`
	Eligible   bool         `json:"eligible"`
	Reason     string       `json:"reason,omitempty"`
}

type pageResponse[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"totalCount"`
	HasNext    bool `json:"hasNext"`
}

func newPageResponse[S, T any](page domain.PagedList[S], convert func(S) T) pageResponse[T] {
	items := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return pageResponse[T]{Items: items, TotalCount: page.TotalCount, HasNext: page.HasNext}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
