// Package session drives one kiosk through the checkout flow.
//
// A Controller owns the current Session and mutates it only from Run. Tag
// reads, payment results, timer ticks and customer commands all funnel into
// that one goroutine, so no lock guards the session.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/fjod/go_cart/kiosk-service/internal/gateway"
	"github.com/fjod/go_cart/kiosk-service/internal/paytimer"
	"github.com/fjod/go_cart/kiosk-service/internal/scanner"
)

// TagScanner is the part of *scanner.Scanner the controller drives.
type TagScanner interface {
	Start(ctx context.Context, sink scanner.Sink)
	Stop()
}

type TransactionGateway interface {
	Submit(ctx context.Context, tx domain.Transaction) error
}

type QREncoder interface {
	Encode(payload []byte) ([]byte, error)
}

type Config struct {
	PaymentWindow    int // seconds
	WarningThreshold int // seconds remaining when the warning fires
	CustomerID       string
	PaymentMethod    string
	SubmitTimeout    time.Duration
	EventBuffer      int
}

func DefaultConfig() Config {
	return Config{
		PaymentWindow:    90,
		WarningThreshold: 16,
		CustomerID:       "668445e9e4112e093e3eab21",
		PaymentMethod:    "EVC-PLUS",
		SubmitTimeout:    10 * time.Second,
		EventBuffer:      64,
	}
}

type Deps struct {
	Scanner   TagScanner
	Gateway   TransactionGateway
	Encoder   QREncoder
	Notifier  Notifier
	Logger    *zap.Logger
	TimerOpts []paytimer.Option
}

type Controller struct {
	cfg       Config
	scanner   TagScanner
	gateway   TransactionGateway
	encoder   QREncoder
	notifier  Notifier
	log       *zap.Logger
	timerOpts []paytimer.Option
	now       func() time.Time

	events  chan any
	stopped chan struct{}

	// owned by Run
	ctx         context.Context
	session     *Session
	scannerLost bool
}

func NewController(cfg Config, deps Deps) *Controller {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultConfig().SubmitTimeout
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Controller{
		cfg:       cfg,
		scanner:   deps.Scanner,
		gateway:   deps.Gateway,
		encoder:   deps.Encoder,
		notifier:  notifier,
		log:       log,
		timerOpts: deps.TimerOpts,
		now:       time.Now,
		events:    make(chan any, cfg.EventBuffer),
		stopped:   make(chan struct{}),
		session:   newSession(cfg.WarningThreshold, deps.TimerOpts),
	}
}

// Run processes events until ctx is cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.stopped)
	defer c.shutdown()

	c.log.Info("session controller started", zap.Stringer("session_id", c.session.ID))
	for {
		select {
		case <-ctx.Done():
			c.log.Info("session controller stopping")
			return nil
		case ev := <-c.events:
			c.handle(ev)
		case <-c.session.Timer.C():
			c.session.Timer.Tick()
			if c.session.Timer.Running() {
				c.notify(Notification{Kind: KindTimerTick, Remaining: c.session.Timer.Remaining()})
			}
		}
	}
}

func (c *Controller) shutdown() {
	c.session.Timer.Cancel()
	c.scanner.Stop()
}

func (c *Controller) handle(ev any) {
	switch e := ev.(type) {
	case command:
		e.done <- e.fn()
	case scanEvent:
		c.onScan(e)
	case paymentResult:
		c.onPaymentResult(e)
	default:
		c.log.Error("unknown event", zap.Any("event", ev))
	}
}

// post hands an event from a background goroutine to the loop.
func (c *Controller) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// do runs fn on the loop goroutine and waits for its result.
func (c *Controller) do(ctx context.Context, name string, fn func() error) error {
	cmd := command{name: name, fn: fn, done: make(chan error, 1)}
	select {
	case c.events <- cmd:
	case <-c.stopped:
		return domain.ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		if err != nil {
			c.log.Debug("command rejected", zap.String("command", name), zap.Error(err))
		}
		return err
	case <-c.stopped:
		return domain.ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start leaves Idle and begins reading tags.
func (c *Controller) Start(ctx context.Context) error {
	return c.do(ctx, "start", func() error {
		if err := c.transition(domain.StateScanning); err != nil {
			return err
		}
		c.startScanner()
		return nil
	})
}

// Review shows the cart for editing while tags keep being read.
func (c *Controller) Review(ctx context.Context) error {
	return c.do(ctx, "review", func() error {
		return c.transition(domain.StateReviewingCart)
	})
}

// Resume returns from the cart review to plain scanning.
func (c *Controller) Resume(ctx context.Context) error {
	return c.do(ctx, "resume", func() error {
		if c.session.State != domain.StateReviewingCart {
			return c.illegal(domain.StateScanning)
		}
		return c.transition(domain.StateScanning)
	})
}

func (c *Controller) RemoveItem(ctx context.Context, uid string) error {
	return c.do(ctx, "remove_item", func() error {
		if !c.session.State.AcceptsScans() {
			return errors.Wrapf(domain.ErrIllegalTransition, "cannot edit cart in %s", c.session.State)
		}
		if err := c.session.Cart.Remove(uid); err != nil {
			return err
		}
		c.notifyCart()
		return nil
	})
}

// ConfirmPurchase asks the customer to confirm the cart. An empty cart is
// reported and the session stays where it is.
func (c *Controller) ConfirmPurchase(ctx context.Context) error {
	return c.do(ctx, "confirm_purchase", func() error {
		if !c.session.State.AcceptsScans() {
			return c.illegal(domain.StateConfirmingPurchase)
		}
		if c.session.Cart.IsEmpty() {
			c.notify(Notification{Kind: KindEmptyCart, Message: "Your cart is empty."})
			return domain.ErrEmptyCart
		}
		return c.transition(domain.StateConfirmingPurchase)
	})
}

// Accept freezes the cart into a payment request, shows its QR code and
// starts the payment window.
func (c *Controller) Accept(ctx context.Context) error {
	return c.do(ctx, "accept", func() error {
		s := c.session
		if s.State != domain.StateConfirmingPurchase {
			return c.illegal(domain.StateAwaitingMobilePayment)
		}
		req := domain.NewPaymentRequest(s.Cart.Items(), s.Cart.Total())
		payload, err := domain.NewQRPayload(req).Marshal()
		if err != nil {
			return errors.Wrap(err, "marshal qr payload")
		}
		png, err := c.encoder.Encode(payload)
		if err != nil {
			return errors.Wrap(err, "encode qr code")
		}

		c.scanner.Stop()
		s.Payment = req
		s.QR = png
		if err := c.transition(domain.StateAwaitingMobilePayment); err != nil {
			return err
		}
		c.notify(Notification{Kind: KindQRReady, Total: domain.FormatPrice(req.Total)})
		c.startTimer(s)
		return nil
	})
}

// Decline goes back to scanning with the cart intact.
func (c *Controller) Decline(ctx context.Context) error {
	return c.do(ctx, "decline", func() error {
		if c.session.State != domain.StateConfirmingPurchase {
			return c.illegal(domain.StateScanning)
		}
		if err := c.transition(domain.StateScanning); err != nil {
			return err
		}
		c.startScanner()
		return nil
	})
}

// NoSmartphone switches to the assisted phone number flow. The payment
// window keeps running.
func (c *Controller) NoSmartphone(ctx context.Context) error {
	return c.do(ctx, "no_smartphone", func() error {
		if c.session.State != domain.StateAwaitingMobilePayment {
			return c.illegal(domain.StateAssistedPaymentEntry)
		}
		return c.transition(domain.StateAssistedPaymentEntry)
	})
}

// SubmitPhone validates the number and submits the frozen payment request.
// The result arrives later as an event.
func (c *Controller) SubmitPhone(ctx context.Context, phone string) error {
	return c.do(ctx, "submit_phone", func() error {
		s := c.session
		if s.State != domain.StateAssistedPaymentEntry {
			return c.illegal(domain.StateProcessingAssistedPayment)
		}
		if err := ValidatePhone(phone); err != nil {
			c.notify(Notification{Kind: KindInvalidPhoneNumber, Message: "Please enter a valid 9-digit phone number."})
			return err
		}
		s.Payment.Phone = phone
		if err := c.transition(domain.StateProcessingAssistedPayment); err != nil {
			return err
		}
		s.pending = uuid.New()
		c.submit(s.ID, s.pending, domain.NewTransaction(c.cfg.CustomerID, c.cfg.PaymentMethod, s.Payment))
		return nil
	})
}

// Complete records an out-of-band confirmation that the mobile app paid.
func (c *Controller) Complete(ctx context.Context) error {
	return c.do(ctx, "complete", func() error {
		if c.session.State != domain.StateAwaitingMobilePayment {
			return c.illegal(domain.StateCompleted)
		}
		c.notify(Notification{Kind: KindPaymentSucceeded})
		c.finish(domain.StateCompleted)
		return nil
	})
}

// Restart abandons the session from any state and returns to Idle.
func (c *Controller) Restart(ctx context.Context) error {
	return c.do(ctx, "restart", func() error {
		c.log.Info("session restarted",
			zap.Stringer("session_id", c.session.ID),
			zap.Stringer("state", c.session.State))
		c.reset()
		return nil
	})
}

func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, "snapshot", func() error {
		snap = c.session.snapshot(c.scannerLost)
		return nil
	})
	return snap, err
}

// QRCode returns the PNG shown for the current payment request.
func (c *Controller) QRCode(ctx context.Context) ([]byte, error) {
	var png []byte
	err := c.do(ctx, "qr_code", func() error {
		if c.session.QR == nil || !c.session.State.InPaymentWindow() {
			return domain.ErrNoPayment
		}
		png = append([]byte(nil), c.session.QR...)
		return nil
	})
	return png, err
}

func (c *Controller) onScan(e scanEvent) {
	if lost, ok := e.event.(scanner.DeviceLost); ok {
		c.scannerLost = true
		c.log.Error("rfid reader lost", zap.Error(lost.Err))
		c.notify(Notification{Kind: KindScannerLost, Message: "Device not found."})
		return
	}

	s := c.session
	if e.sessionID != s.ID || !s.State.AcceptsScans() {
		c.log.Debug("ignoring scan event",
			zap.Stringer("event_session_id", e.sessionID),
			zap.Stringer("state", s.State))
		return
	}

	switch ev := e.event.(type) {
	case scanner.ProductScanned:
		if err := s.Cart.Add(ev.Product); err != nil {
			pos, _ := s.Cart.Position(ev.Product.UID)
			c.notify(Notification{Kind: KindDuplicateItem, UID: ev.Product.UID, Position: pos})
			return
		}
		c.notifyCart()
	case scanner.ProductNotFound:
		c.notify(Notification{Kind: KindProductNotFound, UID: ev.UID})
	case scanner.ReadFailed:
		c.notify(Notification{Kind: KindScannerError, Message: ev.Err.Error()})
	}
}

func (c *Controller) onPaymentResult(r paymentResult) {
	s := c.session
	if r.sessionID != s.ID || r.requestID != s.pending || s.State != domain.StateProcessingAssistedPayment {
		c.log.Warn("discarding stale payment result",
			zap.Stringer("session_id", r.sessionID),
			zap.Stringer("request_id", r.requestID),
			zap.Stringer("current_session_id", s.ID),
			zap.Stringer("state", s.State),
			zap.Error(r.err))
		return
	}
	s.pending = uuid.Nil

	if r.err != nil {
		c.log.Warn("assisted payment failed", zap.Stringer("session_id", s.ID), zap.Error(r.err))
		c.notify(Notification{Kind: KindPaymentFailed, Message: gateway.UserMessage(r.err)})
		_ = c.transition(domain.StateAssistedPaymentEntry)
		return
	}
	c.log.Info("assisted payment succeeded", zap.Stringer("session_id", s.ID))
	c.notify(Notification{Kind: KindPaymentSucceeded})
	c.finish(domain.StateCompleted)
}

func (c *Controller) onTimerWarning(sessionID uuid.UUID) {
	if sessionID != c.session.ID {
		return
	}
	c.notify(Notification{Kind: KindTimerWarning, Remaining: c.session.Timer.Remaining()})
}

func (c *Controller) onTimerExpired(sessionID uuid.UUID) {
	s := c.session
	if sessionID != s.ID || !s.State.InPaymentWindow() {
		return
	}
	c.log.Info("payment window expired",
		zap.Stringer("session_id", s.ID),
		zap.Stringer("state", s.State),
		zap.Bool("payment_pending", s.pending != uuid.Nil))
	c.finish(domain.StateTimedOut)
}

func (c *Controller) submit(sessionID, requestID uuid.UUID, tx domain.Transaction) {
	ctx := c.ctx
	timeout := c.cfg.SubmitTimeout
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := c.gateway.Submit(callCtx, tx)
		c.post(paymentResult{sessionID: sessionID, requestID: requestID, err: err})
	}()
}

func (c *Controller) startScanner() {
	id := c.session.ID
	c.scanner.Start(c.ctx, func(ev scanner.Event) {
		c.post(scanEvent{sessionID: id, event: ev})
	})
}

func (c *Controller) startTimer(s *Session) {
	id := s.ID
	s.Timer.Start(c.cfg.PaymentWindow,
		func() { c.onTimerWarning(id) },
		func() { c.onTimerExpired(id) })
	if s.Timer.Running() {
		c.notify(Notification{Kind: KindTimerTick, Remaining: s.Timer.Remaining()})
	}
}

// finish enters a terminal state, runs its entry action and resets to Idle.
func (c *Controller) finish(terminal domain.State) {
	if !terminal.IsTerminal() {
		c.log.Error("cannot finish session in a non-terminal state", zap.String("state", string(terminal)))
		return
	}
	s := c.session
	s.Timer.Cancel()
	s.Cart.Clear()
	if err := c.transition(terminal); err != nil {
		c.log.Error("cannot finish session", zap.Error(err))
	}
	c.reset()
}

// reset discards the current session and starts a fresh one in Idle.
func (c *Controller) reset() {
	old := c.session
	old.Timer.Cancel()
	c.scanner.Stop()

	c.session = newSession(c.cfg.WarningThreshold, c.timerOpts)
	c.log.Info("session reset",
		zap.Stringer("previous_session_id", old.ID),
		zap.Stringer("session_id", c.session.ID))
	c.notify(Notification{
		Kind:  KindStateChanged,
		From:  old.State,
		State: domain.StateIdle,
		Items: []Item{},
		Total: domain.FormatPrice(c.session.Cart.Total()),
	})
}

func (c *Controller) transition(to domain.State) error {
	from := c.session.State
	if !domain.CanTransitionTo(from, to) {
		return c.illegal(to)
	}
	c.session.State = to
	c.log.Info("session state changed",
		zap.Stringer("session_id", c.session.ID),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	c.notify(Notification{
		Kind:  KindStateChanged,
		From:  from,
		State: to,
		Items: itemsOf(c.session.Cart.Items()),
		Total: domain.FormatPrice(c.session.Cart.Total()),
	})
	return nil
}

func (c *Controller) illegal(to domain.State) error {
	return errors.Wrapf(domain.ErrIllegalTransition, "%s -> %s", c.session.State, to)
}

func (c *Controller) notifyCart() {
	c.notify(Notification{
		Kind:  KindCartChanged,
		Items: itemsOf(c.session.Cart.Items()),
		Total: domain.FormatPrice(c.session.Cart.Total()),
	})
}

func (c *Controller) notify(n Notification) {
	if n.SessionID == "" {
		n.SessionID = c.session.ID.String()
	}
	n.At = c.now()
	c.notifier.Notify(n)
}
