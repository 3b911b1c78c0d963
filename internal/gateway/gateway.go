// Package gateway submits assisted (phone number) payments to the
// transaction service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const TransactionsPath = "/api/transactions"

const unknownError = "Unknown error"

var ErrUnavailable = errors.New("transaction service unavailable")

// RejectedError is a non-201 answer. Message is the server's own text.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction rejected with status %d: %s", e.StatusCode, e.Message)
}

// UserMessage turns a Submit error into the text shown to the customer.
func UserMessage(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	return fmt.Sprintf("Network error occurred: %v", err)
}

type Option func(*gobreaker.Settings)

// WithBreaker sets how many consecutive transport or 5xx failures open the
// circuit and how long it stays open.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(s *gobreaker.Settings) {
		s.Timeout = openTimeout
		s.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		}
	}
}

type Gateway struct {
	client *http.Client
	url    string
	log    *zap.Logger
	cb     *gobreaker.CircuitBreaker[int]
}

func New(client *http.Client, baseURL string, log *zap.Logger, opts ...Option) *Gateway {
	st := gobreaker.Settings{
		Name:    "transactions",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	for _, opt := range opts {
		opt(&st)
	}
	return &Gateway{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + TransactionsPath,
		log:    log,
		cb:     gobreaker.NewCircuitBreaker[int](st),
	}
}

// Submit posts the transaction. It returns nil only for HTTP 201.
// Business rejections come back as *RejectedError and do not count
// against the circuit breaker; transport errors and 5xx answers do.
func (g *Gateway) Submit(ctx context.Context, tx domain.Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrap(err, "marshal transaction")
	}

	var rejected *RejectedError
	status, err := g.cb.Execute(func() (int, error) {
		status, message, err := g.post(ctx, body)
		if err != nil {
			return 0, err
		}
		if status >= http.StatusInternalServerError {
			return status, &RejectedError{StatusCode: status, Message: message}
		}
		if status != http.StatusCreated {
			rejected = &RejectedError{StatusCode: status, Message: message}
		}
		return status, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	if err != nil {
		g.log.Warn("transaction submit failed", zap.Error(err))
		return err
	}
	if rejected != nil {
		g.log.Info("transaction rejected",
			zap.Int("status", status),
			zap.String("message", rejected.Message))
		return rejected
	}
	g.log.Info("transaction accepted", zap.Int("products", len(tx.ProductsList)))
	return nil
}

func (g *Gateway) post(ctx context.Context, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, "", errors.Wrapf(err, "POST %s", g.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, "", nil
	}
	return resp.StatusCode, readMessage(resp.Body), nil
}

func readMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil || body.Message == "" {
		return unknownError
	}
	return body.Message
}
