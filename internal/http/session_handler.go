package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/kiosk-service/internal/session"
)

// Kiosk is the session controller as seen by the HTTP surface.
type Kiosk interface {
	Start(ctx context.Context) error
	Review(ctx context.Context) error
	Resume(ctx context.Context) error
	RemoveItem(ctx context.Context, uid string) error
	ConfirmPurchase(ctx context.Context) error
	Accept(ctx context.Context) error
	Decline(ctx context.Context) error
	NoSmartphone(ctx context.Context) error
	SubmitPhone(ctx context.Context, phone string) error
	Complete(ctx context.Context) error
	Restart(ctx context.Context) error
	Snapshot(ctx context.Context) (session.Snapshot, error)
	QRCode(ctx context.Context) ([]byte, error)
}

// LastNotification reads back the most recent notification sent to the
// displays. Nil notification means nothing was published yet.
type LastNotification interface {
	Last(ctx context.Context) (*session.Notification, error)
}

type SessionHandler struct {
	kiosk   Kiosk
	last    LastNotification
	timeout time.Duration
}

func NewSessionHandler(kiosk Kiosk, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		kiosk:   kiosk,
		timeout: timeout,
	}
}

// WithLastNotification enables GET /api/v1/session/last.
func (h *SessionHandler) WithLastNotification(last LastNotification) *SessionHandler {
	h.last = last
	return h
}

type PhoneRequestDTO struct {
	Phone string `json:"phone"`
}

// GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.kiosk.Snapshot(ctx)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// command wraps a controller call that takes no arguments and answers with
// the resulting session.
func (h *SessionHandler) command(call func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.run(w, r, call)
	}
}

func (h *SessionHandler) run(w http.ResponseWriter, r *http.Request, call func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := call(ctx); err != nil {
		respondSessionError(w, err)
		return
	}
	snap, err := h.kiosk.Snapshot(ctx)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// DELETE /api/v1/session/cart/{uid}
func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		respondError(w, http.StatusBadRequest, "invalid_uid", "uid is required")
		return
	}
	h.run(w, r, func(ctx context.Context) error {
		return h.kiosk.RemoveItem(ctx, uid)
	})
}

// POST /api/v1/session/payment/phone
func (h *SessionHandler) SubmitPhone(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	h.run(w, r, func(ctx context.Context) error {
		return h.kiosk.SubmitPhone(ctx, req.Phone)
	})
}

// GET /api/v1/session/last
func (h *SessionHandler) LastNotification(w http.ResponseWriter, r *http.Request) {
	if h.last == nil {
		respondError(w, http.StatusNotFound, "not_configured", "notification broadcast is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.last.Last(ctx)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "notification store unavailable",
			Code:    "service_unavailable",
			Details: err.Error(),
		})
		return
	}
	if n == nil {
		respondError(w, http.StatusNotFound, "no_notification", "nothing published yet")
		return
	}
	respondJSON(w, http.StatusOK, n)
}
