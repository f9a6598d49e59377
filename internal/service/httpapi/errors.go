package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Коды ошибок в теле ответа.
const (
	CodeInvalidArgument   = "invalid_argument"
	CodeNotFound          = "not_found"
	CodeUnsupportedMethod = "unsupported_payment_method"
	CodeIneligible        = "ineligible"
	CodeInternal          = "internal"
	CodeMethodNotAllowed  = "method_not_allowed"
)

// classify сопоставляет ошибку домена с HTTP-статусом и кодом ответа.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, CodeInvalidArgument
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrUnsupportedPaymentMethod):
		return http.StatusBadRequest, CodeUnsupportedMethod
	case errors.Is(err, domain.ErrIneligible):
		return http.StatusUnprocessableEntity, CodeIneligible
	case errors.Is(err, context.Canceled):
		return 499, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	status, code := classify(err)

	message := err.Error()
	if code == CodeInternal {
		// Детали инфраструктурных ошибок только в логах.
		logger.WithError(err).Error("request failed")
		message = "internal error"
	}

	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
