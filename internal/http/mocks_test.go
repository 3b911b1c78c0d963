package http

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/fjod/go_cart/kiosk-service/internal/session"
)

type KioskMock struct {
	mu    sync.Mutex
	calls []string
	phone string
	uid   string
	err   error
	snap  session.Snapshot
	png   []byte
}

func (k *KioskMock) record(name string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, name)
	return k.err
}

func (k *KioskMock) Calls() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.calls...)
}

func (k *KioskMock) Start(context.Context) error           { return k.record("start") }
func (k *KioskMock) Review(context.Context) error          { return k.record("review") }
func (k *KioskMock) Resume(context.Context) error          { return k.record("resume") }
func (k *KioskMock) ConfirmPurchase(context.Context) error { return k.record("confirm") }
func (k *KioskMock) Accept(context.Context) error          { return k.record("accept") }
func (k *KioskMock) Decline(context.Context) error         { return k.record("decline") }
func (k *KioskMock) NoSmartphone(context.Context) error    { return k.record("no_smartphone") }
func (k *KioskMock) Complete(context.Context) error        { return k.record("complete") }
func (k *KioskMock) Restart(context.Context) error         { return k.record("restart") }

func (k *KioskMock) RemoveItem(_ context.Context, uid string) error {
	k.uid = uid
	return k.record("remove")
}

func (k *KioskMock) SubmitPhone(_ context.Context, phone string) error {
	k.phone = phone
	return k.record("phone")
}

func (k *KioskMock) Snapshot(context.Context) (session.Snapshot, error) {
	return k.snap, nil
}

func (k *KioskMock) QRCode(context.Context) ([]byte, error) {
	if k.png == nil {
		return nil, domain.ErrNoPayment
	}
	return k.png, nil
}

type LastMock struct {
	n   *session.Notification
	err error
}

func (l LastMock) Last(context.Context) (*session.Notification, error) {
	return l.n, l.err
}
