package session

import (
	"time"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
)

// Kind names a notification for the presentation layer.
type Kind string

const (
	KindStateChanged       Kind = "state_changed"
	KindCartChanged        Kind = "cart_changed"
	KindDuplicateItem      Kind = "duplicate_item"
	KindProductNotFound    Kind = "product_not_found"
	KindEmptyCart          Kind = "empty_cart"
	KindInvalidPhoneNumber Kind = "invalid_phone_number"
	KindQRReady            Kind = "qr_ready"
	KindPaymentFailed      Kind = "payment_failed"
	KindPaymentSucceeded   Kind = "payment_succeeded"
	KindTimerTick          Kind = "timer_tick"
	KindTimerWarning       Kind = "timer_warning"
	KindScannerError       Kind = "scanner_error"
	KindScannerLost        Kind = "scanner_lost"
)

// Notification is a user-facing outcome emitted by the controller.
// Which fields are set depends on Kind.
type Notification struct {
	Kind      Kind         `json:"type"`
	SessionID string       `json:"session_id"`
	At        time.Time    `json:"at"`
	From      domain.State `json:"from,omitempty"`
	State     domain.State `json:"state,omitempty"`
	UID       string       `json:"uid,omitempty"`
	Position  int          `json:"position,omitempty"`
	Message   string       `json:"message,omitempty"`
	Remaining int          `json:"remaining_seconds,omitempty"`
	Items     []Item       `json:"items,omitempty"`
	Total     string       `json:"total,omitempty"`
}

// Notifier receives notifications on the controller goroutine and must not block.
type Notifier interface {
	Notify(n Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// Item is one cart line as shown to the customer.
type Item struct {
	Position int    `json:"position"`
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Amount   string `json:"amount"`
}

func itemsOf(products []domain.Product) []Item {
	items := make([]Item, 0, len(products))
	for i, p := range products {
		items = append(items, Item{
			Position: i + 1,
			UID:      p.UID,
			Name:     p.Name,
			Price:    domain.FormatPrice(p.SellingPrice),
			Amount:   p.SellingPrice.StringFixed(2),
		})
	}
	return items
}
