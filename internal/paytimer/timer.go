// Package paytimer implements the payment window countdown.
//
// The Timer does not run its own goroutine. The owner selects on C() in its
// event loop and calls Tick for every value received, so callbacks always
// run on the owner's goroutine and the countdown can never overlap itself.
package paytimer

import "time"

// Ticker is the subset of *time.Ticker the timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

type Option func(*Timer)

// WithTickerFactory replaces the wall clock ticker, mostly for tests.
func WithTickerFactory(f func(time.Duration) Ticker) Option {
	return func(t *Timer) { t.newTicker = f }
}

func WithInterval(d time.Duration) Option {
	return func(t *Timer) { t.interval = d }
}

type Timer struct {
	warningAt int
	interval  time.Duration
	newTicker func(time.Duration) Ticker

	ticker    Ticker
	remaining int
	running   bool
	warned    bool
	onWarning func()
	onExpire  func()
}

func New(warningThreshold int, opts ...Option) *Timer {
	t := &Timer{
		warningAt: warningThreshold,
		interval:  time.Second,
		newTicker: NewStdTicker,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a countdown of seconds, cancelling any countdown in progress.
// onWarning fires once when the remaining time equals the warning threshold,
// onExpire fires once when it reaches zero.
func (t *Timer) Start(seconds int, onWarning, onExpire func()) {
	t.Cancel()
	t.remaining = seconds
	t.warned = false
	t.onWarning = onWarning
	t.onExpire = onExpire
	t.running = true
	t.ticker = t.newTicker(t.interval)

	t.checkWarning()
	if t.remaining <= 0 {
		t.expire()
	}
}

// C delivers one value per elapsed interval while running, nil otherwise.
// Receiving from a nil channel blocks, so a stopped timer is inert in a select.
func (t *Timer) C() <-chan time.Time {
	if !t.running || t.ticker == nil {
		return nil
	}
	return t.ticker.C()
}

// Tick accounts for one elapsed second.
func (t *Timer) Tick() {
	if !t.running {
		return
	}
	t.remaining--
	t.checkWarning()
	if t.remaining <= 0 {
		t.expire()
	}
}

// Cancel stops the countdown without firing onExpire. It is idempotent.
func (t *Timer) Cancel() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	t.running = false
}

func (t *Timer) Remaining() int { return t.remaining }

func (t *Timer) Running() bool { return t.running }

func (t *Timer) checkWarning() {
	if t.warned || t.remaining != t.warningAt {
		return
	}
	t.warned = true
	if t.onWarning != nil {
		t.onWarning()
	}
}

func (t *Timer) expire() {
	t.remaining = 0
	onExpire := t.onExpire
	t.Cancel()
	if onExpire != nil {
		onExpire()
	}
}
