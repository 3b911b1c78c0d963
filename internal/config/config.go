// Package config reads kiosk settings from KIOSK_* environment variables.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/fjod/go_cart/kiosk-service/internal/session"
)

const Prefix = "KIOSK"

type Config struct {
	BackendURL  string        `envconfig:"BACKEND_URL" default:"http://localhost:5000"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	PaymentWindow    time.Duration `envconfig:"PAYMENT_WINDOW" default:"90s"`
	WarningThreshold time.Duration `envconfig:"WARNING_THRESHOLD" default:"16s"`
	CustomerID       string        `envconfig:"CUSTOMER_ID" default:"668445e9e4112e093e3eab21"`
	PaymentMethod    string        `envconfig:"PAYMENT_METHOD" default:"EVC-PLUS"`

	DevicePath       string        `envconfig:"DEVICE_PATH"`
	ScanCooldown     time.Duration `envconfig:"SCAN_COOLDOWN" default:"1s"`
	ReadErrorBackoff time.Duration `envconfig:"READ_ERROR_BACKOFF" default:"1s"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	RedisAddr    string `envconfig:"REDIS_ADDR"`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"kiosk:session"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.BackendURL == "":
		return errors.New("backend url is required")
	case c.PaymentWindow < time.Second:
		return errors.Errorf("payment window %s is shorter than one second", c.PaymentWindow)
	case c.WarningThreshold <= 0 || c.WarningThreshold >= c.PaymentWindow:
		return errors.Errorf("warning threshold %s must be positive and below the payment window %s",
			c.WarningThreshold, c.PaymentWindow)
	case c.CustomerID == "":
		return errors.New("customer id is required")
	case c.PaymentMethod == "":
		return errors.New("payment method is required")
	case c.BreakerMaxFailures == 0:
		return errors.New("breaker max failures must be at least 1")
	}
	return nil
}

// Session derives the controller settings. The payment timer counts whole
// seconds.
func (c *Config) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.PaymentWindow = int(c.PaymentWindow / time.Second)
	cfg.WarningThreshold = int(c.WarningThreshold / time.Second)
	cfg.CustomerID = c.CustomerID
	cfg.PaymentMethod = c.PaymentMethod
	cfg.SubmitTimeout = c.HTTPTimeout
	return cfg
}
