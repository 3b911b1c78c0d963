package scanner

import "github.com/fjod/go_cart/kiosk-service/internal/domain"

// Event is an immutable value emitted by the scan loop.
type Event interface {
	scanEvent()
}

// ProductScanned carries a tag that resolved to a catalog product.
type ProductScanned struct {
	Product domain.Product
}

// ProductNotFound carries a tag uid missing from the catalog snapshot.
type ProductNotFound struct {
	UID string
}

// ReadFailed is a recoverable hardware error; the loop keeps polling.
type ReadFailed struct {
	Err error
}

// DeviceLost means the reader is gone and the loop has terminated.
type DeviceLost struct {
	Err error
}

func (ProductScanned) scanEvent()  {}
func (ProductNotFound) scanEvent() {}
func (ReadFailed) scanEvent()      {}
func (DeviceLost) scanEvent()      {}

// Sink receives events in the order the hardware produced them.
type Sink func(Event)
