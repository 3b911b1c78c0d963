// Package scanner runs the background RFID polling loop.
package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"go.uber.org/zap"
)

// Device is the blocking hardware read primitive.
// Read returns domain.ErrDeviceAbsent once the reader is gone.
type Device interface {
	Read(ctx context.Context) (uid, payload string, err error)
	Close() error
}

type Lookuper interface {
	Lookup(uid string) (domain.Product, error)
}

type Option func(*Scanner)

// WithCooldown sets the pause after a successful read that keeps a tag
// resting on the reader from being reported again straight away.
func WithCooldown(d time.Duration) Option {
	return func(s *Scanner) { s.cooldown = d }
}

func WithErrorBackoff(d time.Duration) Option {
	return func(s *Scanner) { s.backoff = d }
}

type Scanner struct {
	dev      Device
	catalog  Lookuper
	log      *zap.Logger
	cooldown time.Duration
	backoff  time.Duration

	mu       sync.Mutex
	running  bool
	stopping bool
	lost     bool
	closed   bool
	sink     Sink

	closeOnce sync.Once
}

func New(dev Device, catalog Lookuper, log *zap.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		dev:      dev,
		catalog:  catalog,
		log:      log,
		cooldown: time.Second,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the polling loop. If a previous loop was asked to stop but
// is still blocked in Read, it is revived instead of starting a second
// reader on the same device.
func (s *Scanner) Start(ctx context.Context, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost || s.closed {
		s.log.Warn("scanner not started, device unavailable")
		return
	}
	s.sink = sink
	s.stopping = false
	if s.running {
		return
	}
	s.running = true
	go s.run(ctx)
}

// Stop asks the loop to exit before its next read. A read already in
// flight still completes and its event is still delivered.
func (s *Scanner) Stop() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
}

func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Close stops the loop and releases the device.
func (s *Scanner) Close() error {
	s.mu.Lock()
	s.stopping = true
	s.closed = true
	running := s.running
	s.mu.Unlock()
	if running {
		// the loop releases the device on exit
		return nil
	}
	return s.closeDevice()
}

func (s *Scanner) run(ctx context.Context) {
	for {
		if !s.next(ctx) {
			return
		}

		uid, _, err := s.dev.Read(ctx)
		// the read may have outlived a Stop and a new Start; deliver to
		// whoever started the loop last
		sink := s.currentSink()
		if err != nil {
			if errors.Is(err, domain.ErrDeviceAbsent) {
				s.log.Error("rfid device lost", zap.Error(err))
				s.exit(true)
				sink(DeviceLost{Err: err})
				return
			}
			if ctx.Err() != nil {
				continue
			}
			s.log.Warn("rfid read failed", zap.Error(err))
			sink(ReadFailed{Err: err})
			sleep(ctx, s.backoff)
			continue
		}

		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		s.log.Debug("tag read", zap.String("uid", uid))
		if p, err := s.catalog.Lookup(uid); err != nil {
			sink(ProductNotFound{UID: uid})
		} else {
			sink(ProductScanned{Product: p})
		}
		sleep(ctx, s.cooldown)
	}
}

// next reports whether another read should be attempted. The decision to
// exit and clearing running happen under one lock, so a concurrent Start
// either revives this loop or spawns a new one, never neither.
func (s *Scanner) next(ctx context.Context) bool {
	s.mu.Lock()
	if !s.stopping && ctx.Err() == nil {
		s.mu.Unlock()
		return true
	}
	release := s.markExited(false)
	s.mu.Unlock()
	s.release(release)
	return false
}

func (s *Scanner) currentSink() Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *Scanner) exit(lost bool) {
	s.mu.Lock()
	release := s.markExited(lost)
	s.mu.Unlock()
	s.release(release)
}

// markExited must be called with s.mu held. It reports whether the device
// should be released.
func (s *Scanner) markExited(lost bool) bool {
	s.running = false
	if lost {
		s.lost = true
	}
	return s.closed || s.lost
}

func (s *Scanner) release(release bool) {
	if !release {
		return
	}
	if err := s.closeDevice(); err != nil {
		s.log.Warn("rfid device cleanup failed", zap.Error(err))
	}
}

func (s *Scanner) closeDevice() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.dev.Close()
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
