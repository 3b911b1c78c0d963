package notify

import (
	"go.uber.org/zap"

	"github.com/fjod/go_cart/kiosk-service/internal/session"
)

// Log writes every notification to the logger. It is the display of last
// resort when no Redis is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(n session.Notification) {
	fields := []zap.Field{
		zap.String("type", string(n.Kind)),
		zap.String("session_id", n.SessionID),
	}
	if n.State != "" {
		fields = append(fields, zap.Stringer("state", n.State))
	}
	if n.UID != "" {
		fields = append(fields, zap.String("uid", n.UID))
	}
	if n.Message != "" {
		fields = append(fields, zap.String("message", n.Message))
	}
	if n.Total != "" {
		fields = append(fields, zap.String("total", n.Total))
	}

	if n.Kind == session.KindTimerTick {
		l.log.Debug("notification", append(fields, zap.Int("remaining_seconds", n.Remaining))...)
		return
	}
	l.log.Info("notification", fields...)
}

// Fanout delivers each notification to every notifier in order.
type Fanout []session.Notifier

func (f Fanout) Notify(n session.Notification) {
	for _, notifier := range f {
		notifier.Notify(n)
	}
}
