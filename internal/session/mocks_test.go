package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/fjod/go_cart/kiosk-service/internal/paytimer"
	"github.com/fjod/go_cart/kiosk-service/internal/scanner"
)

type fakeScanner struct {
	mu     sync.Mutex
	sink   scanner.Sink
	starts int
	stops  int
}

func (s *fakeScanner) Start(_ context.Context, sink scanner.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
	s.starts++
}

func (s *fakeScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeScanner) emit(ev scanner.Event) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (s *fakeScanner) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// fakeGateway blocks every Submit until the test sends a result.
type fakeGateway struct {
	mu      sync.Mutex
	txs     []domain.Transaction
	results chan error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{results: make(chan error)}
}

func (g *fakeGateway) Submit(ctx context.Context, tx domain.Transaction) error {
	g.mu.Lock()
	g.txs = append(g.txs, tx)
	g.mu.Unlock()
	select {
	case err := <-g.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *fakeGateway) Calls() []domain.Transaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Transaction(nil), g.txs...)
}

type fakeEncoder struct {
	mu       sync.Mutex
	payloads []string
}

func (e *fakeEncoder) Encode(payload []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, string(payload))
	return []byte("png:" + string(payload)), nil
}

func (e *fakeEncoder) Last() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.payloads) == 0 {
		return ""
	}
	return e.payloads[len(e.payloads)-1]
}

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) Of(kind Kind) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.notes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type fakeTicker struct {
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped = true }

// fakeClock hands out tickers the test advances by hand.
type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) newTicker(time.Duration) paytimer.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) current() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

var (
	milk  = domain.Product{UID: "A1", CatalogID: "p-milk", Name: "Milk", SellingPrice: decimal.RequireFromString("1.50"), Status: domain.ProductStatusActive}
	bread = domain.Product{UID: "B2", CatalogID: "p-bread", Name: "Bread", SellingPrice: decimal.RequireFromString("2.49"), Status: domain.ProductStatusActive}
)

type harness struct {
	t       *testing.T
	ctrl    *Controller
	scanner *fakeScanner
	gateway *fakeGateway
	encoder *fakeEncoder
	notes   *recorder
	clock   *fakeClock
	logs    *observer.ObservedLogs
	ctx     context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		t:       t,
		scanner: &fakeScanner{},
		gateway: newFakeGateway(),
		encoder: &fakeEncoder{},
		notes:   &recorder{},
		clock:   &fakeClock{},
		logs:    logs,
	}
	h.ctrl = NewController(DefaultConfig(), Deps{
		Scanner:   h.scanner,
		Gateway:   h.gateway,
		Encoder:   h.encoder,
		Notifier:  h.notes,
		Logger:    zap.New(core),
		TimerOpts: []paytimer.Option{paytimer.WithTickerFactory(h.clock.newTicker)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	h.ctx = ctx
	return h
}

func (h *harness) snapshot() Snapshot {
	h.t.Helper()
	snap, err := h.ctrl.Snapshot(h.ctx)
	require.NoError(h.t, err)
	return snap
}

func (h *harness) state() domain.State {
	return h.snapshot().State
}

// scan delivers a tag event and waits until the loop has handled it.
func (h *harness) scan(ev scanner.Event) {
	h.scanner.emit(ev)
	h.snapshot()
}

// tick advances the payment window by n seconds.
func (h *harness) tick(n int) {
	h.t.Helper()
	for i := 0; i < n; i++ {
		tk := h.clock.current()
		require.NotNil(h.t, tk, "no ticker created")
		select {
		case tk.ch <- time.Now():
		case <-time.After(time.Second):
			h.t.Fatalf("payment timer not listening after %d ticks", i)
		}
	}
	h.snapshot()
}

// toAwaitingPayment scans the given products, confirms and accepts.
func (h *harness) toAwaitingPayment(products ...domain.Product) {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Start(h.ctx))
	for _, p := range products {
		h.scan(scanner.ProductScanned{Product: p})
	}
	require.NoError(h.t, h.ctrl.ConfirmPurchase(h.ctx))
	require.NoError(h.t, h.ctrl.Accept(h.ctx))
	require.Equal(h.t, domain.StateAwaitingMobilePayment, h.state())
}

func (h *harness) toProcessing(phone string, products ...domain.Product) {
	h.t.Helper()
	h.toAwaitingPayment(products...)
	require.NoError(h.t, h.ctrl.NoSmartphone(h.ctx))
	require.NoError(h.t, h.ctrl.SubmitPhone(h.ctx, phone))
	require.Eventually(h.t, func() bool { return len(h.gateway.Calls()) == 1 }, time.Second, 5*time.Millisecond)
}
