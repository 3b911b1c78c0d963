package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondSessionError converts a controller error to an HTTP status.
func respondSessionError(w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
		message    string
	)

	switch {
	case errors.Is(err, domain.ErrIllegalTransition):
		httpStatus, code, message = http.StatusConflict, "illegal_transition", "action not allowed in the current state"
	case errors.Is(err, domain.ErrEmptyCart):
		httpStatus, code, message = http.StatusConflict, "empty_cart", "Your cart is empty."
	case errors.Is(err, domain.ErrInvalidPhoneNumber):
		httpStatus, code, message = http.StatusUnprocessableEntity, "invalid_phone_number", "Please enter a valid 9-digit phone number."
	case errors.Is(err, domain.ErrItemNotInCart):
		httpStatus, code, message = http.StatusNotFound, "item_not_in_cart", "item is not in the cart"
	case errors.Is(err, domain.ErrNoPayment):
		httpStatus, code, message = http.StatusNotFound, "no_payment", "no payment in progress"
	case errors.Is(err, domain.ErrControllerStopped):
		httpStatus, code, message = http.StatusServiceUnavailable, "service_unavailable", "kiosk is shutting down"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code, message = http.StatusGatewayTimeout, "timeout", "kiosk did not answer in time"
	default:
		httpStatus, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
	}

	respondJSON(w, httpStatus, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: err.Error(),
	})
}
