// Package httpapi — HTTP-транспорт сервиса оформления заказов.
// Даты в ответах переводятся в PresentationZone; всё остальное работает в UTC.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/service/eligibility"
)

// CheckoutService — сценарии, доступные через API.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, method domain.PaymentMethod, value domain.Money, customerID int64) (domain.Order, error)
	ListCustomers(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Customer], error)
	ListProducts(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Product], error)
	ListCustomerOrders(ctx context.Context, customerID int64, from, to time.Time, page domain.PageRequest) (domain.PagedList[domain.Order], error)
}

// EligibilityEvaluator возвращает решение о допуске с причиной отказа.
type EligibilityEvaluator interface {
	Evaluate(ctx context.Context, customerID int64, value domain.Money) (eligibility.Decision, error)
}

// Handler обрабатывает запросы API.
type Handler struct {
	checkout    CheckoutService
	eligibility EligibilityEvaluator
	logger      *log.Entry
}

// NewRouter собирает gorilla/mux роутер со всеми маршрутами API.
func NewRouter(checkout CheckoutService, evaluator EligibilityEvaluator, m *metrics.HTTPMetrics, logger *log.Entry) *mux.Router {
	if logger == nil {
		logger = log.WithFields(log.Fields{"component": "http-api", "layer": "transport"})
	}
	h := &Handler{checkout: checkout, eligibility: evaluator, logger: logger}

	r := mux.NewRouter()
	// mux не применяет Use-цепочку к NotFound и MethodNotAllowed, поэтому они обёрнуты явно.
	middleware := requestMiddleware(logger, m)
	r.Use(middleware)
	r.NotFoundHandler = middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: CodeNotFound, Message: "route not found"})
	}))
	r.MethodNotAllowedHandler = middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Code:    CodeMethodNotAllowed,
			Message: fmt.Sprintf("method %s is not allowed", req.Method),
		})
	}))

	r.HandleFunc("/orders", h.placeOrder).Methods(http.MethodPost)
	r.HandleFunc("/customers", h.listCustomers).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id:[0-9-]+}/can-purchase", h.canPurchase).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id:[0-9-]+}/orders", h.listCustomerOrders).Methods(http.MethodGet)
	r.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	return r
}

type placeOrderRequest struct {
	PaymentMethod string          `json:"paymentMethod"`
	PaymentValue  decimal.Decimal `json:"paymentValue"`
	CustomerID    int64           `json:"customerId"`
}

// placeOrder принимает JSON-тело или те же поля в query string.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaceOrder(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), method, req.PaymentValue, req.CustomerID)
	if err != nil {
		writeError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func decodePlaceOrder(r *http.Request) (placeOrderRequest, error) {
	query := r.URL.Query()
	if query.Has("paymentMethod") || r.ContentLength == 0 {
		var req placeOrderRequest
		req.PaymentMethod = query.Get("paymentMethod")

		value, err := parseMoney(query.Get("paymentValue"), "paymentValue")
		if err != nil {
			return placeOrderRequest{}, err
		}
		req.PaymentValue = value

		req.CustomerID, err = parseID(query.Get("customerId"), "customerId")
		if err != nil {
			return placeOrderRequest{}, err
		}
		return req, nil
	}

	var req placeOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return placeOrderRequest{}, fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidArgument, err)
	}
	return req, nil
}

func (h *Handler) canPurchase(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseID(mux.Vars(r)["id"], "customer id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	value, err := parseMoney(r.URL.Query().Get("value"), "value")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	decision, err := h.eligibility.Evaluate(r.Context(), customerID, value)
	if err != nil {
		writeError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusOK, eligibilityResponse{
		CustomerID: customerID,
		Value:      value,
		Eligible:   decision.Eligible,
		Reason:     string(decision.Reason),
	})
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	customers, err := h.checkout.ListCustomers(r.Context(), page)
	if err != nil {
		writeError(w, h.requestLogger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(customers, func(c domain.Customer) customerResponse {
		return customerResponse{ID: c.ID, Name: c.Name}
	}))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	products, err := h.checkout.ListProducts(r.Context(), page)
	if err != nil {
		writeError(w, h.requestLogger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(products, func(p domain.Product) productResponse {
		return productResponse{ID: p.ID, Name: p.Name, Price: p.Price}
	}))
}

func (h *Handler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseID(mux.Vars(r)["id"], "customer id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	from, err := parseTime(r.URL.Query().Get("from"), "from")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"), "to")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	orders, err := h.checkout.ListCustomerOrders(r.Context(), customerID, from, to, page)
	if err != nil {
		writeError(w, h.requestLogger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(orders, newOrderResponse))
}

func (h *Handler) requestLogger(r *http.Request) *log.Entry {
	return h.logger.WithField("request_id", RequestID(r.Context()))
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, name)
	}
	return id, nil
}

func parseMoney(raw, name string) (domain.Money, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return domain.Money{}, fmt.Errorf("%w: %s must be a decimal number", domain.ErrInvalidArgument, name)
	}
	return value, nil
}

// parsePage читает ?page=N; отсутствие параметра означает первую страницу.
func parsePage(r *http.Request) (domain.PageRequest, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return domain.NewPageRequest(1), nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return domain.PageRequest{}, fmt.Errorf("%w: page must be an integer", domain.ErrInvalidArgument)
	}
	return domain.NewPageRequest(page).Normalize()
}

// parseTime принимает RFC 3339; время без смещения не допускается, чтобы не гадать о часовом поясе.
func parseTime(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", domain.ErrInvalidArgument, name)
	}
	return t.UTC(), nil
}
