package scanner

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/shopspring/decimal"
)

type read struct {
	uid string
	err error
}

// fakeDevice blocks in Read until the test pushes a result.
type fakeDevice struct {
	reads  chan read
	mu     sync.Mutex
	calls  int
	closed int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{reads: make(chan read)}
}

func (d *fakeDevice) Read(ctx context.Context) (string, string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case r := <-d.reads:
		return r.uid, "", r.err
	}
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closed++
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeCatalog map[string]domain.Product

func (c fakeCatalog) Lookup(uid string) (domain.Product, error) {
	p, ok := c[uid]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		"A1": {UID: "A1", Name: "Milk", SellingPrice: decimal.RequireFromString("1.50"), Status: domain.ProductStatusActive},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Sink(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
