package session

import (
	"github.com/google/uuid"

	"github.com/fjod/go_cart/kiosk-service/internal/cart"
	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/fjod/go_cart/kiosk-service/internal/paytimer"
)

// Session is one customer's checkout. A new Session replaces the old one on
// every return to Idle, so nothing leaks between customers.
type Session struct {
	ID      uuid.UUID
	State   domain.State
	Cart    *cart.Cart
	Timer   *paytimer.Timer
	Payment *domain.PaymentRequest
	QR      []byte

	// pending is the request id of the assisted payment in flight, if any.
	pending uuid.UUID
}

func newSession(warningThreshold int, timerOpts []paytimer.Option) *Session {
	return &Session{
		ID:    uuid.New(),
		State: domain.StateIdle,
		Cart:  cart.New(),
		Timer: paytimer.New(warningThreshold, timerOpts...),
	}
}

// PaymentView describes the frozen payment request of a session.
type PaymentView struct {
	RequestID string   `json:"request_id"`
	UIDs      []string `json:"uids"`
	Total     string   `json:"total"`
	Phone     string   `json:"phone,omitempty"`
	Pending   bool     `json:"pending"`
}

// Snapshot is a read-only copy of the session for the HTTP surface.
type Snapshot struct {
	SessionID        string       `json:"session_id"`
	State            domain.State `json:"state"`
	Items            []Item       `json:"items"`
	Total            string       `json:"total"`
	RemainingSeconds int          `json:"remaining_seconds"`
	TimerRunning     bool         `json:"timer_running"`
	ScannerLost      bool         `json:"scanner_lost"`
	Payment          *PaymentView `json:"payment,omitempty"`
}

func (s *Session) snapshot(scannerLost bool) Snapshot {
	snap := Snapshot{
		SessionID:        s.ID.String(),
		State:            s.State,
		Items:            itemsOf(s.Cart.Items()),
		Total:            domain.FormatPrice(s.Cart.Total()),
		RemainingSeconds: s.Timer.Remaining(),
		TimerRunning:     s.Timer.Running(),
		ScannerLost:      scannerLost,
	}
	if s.Payment != nil {
		snap.Payment = &PaymentView{
			RequestID: s.Payment.ID.String(),
			UIDs:      s.Payment.UIDs(),
			Total:     domain.FormatPrice(s.Payment.Total),
			Phone:     s.Payment.Phone,
			Pending:   s.pending != uuid.Nil,
		}
	}
	return snap
}
