package monitor

import (
	"agenthelper/cmd/internal/utils/validators"
	"fmt"
	"time"
)

const (
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultActivityTimeout   = 60 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 2 * time.Second
)

// Config tunes a Monitor. Zero durations are replaced by the defaults in
// Normalize, Enabled is taken as is.
type Config struct {
	HeartbeatInterval time.Duration `validate:"gt=0"`
	ActivityTimeout   time.Duration `validate:"gt=0"`
	MaxRetries        int           `validate:"gte=0,lte=10"`
	RetryDelay        time.Duration `validate:"gte=0"`
	Enabled           bool

	// Reported as heartbeat metadata only.
	UserAgent string `validate:"max=512"`
	PageTitle string `validate:"max=256"`
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		ActivityTimeout:   DefaultActivityTimeout,
		MaxRetries:        DefaultMaxRetries,
		RetryDelay:        DefaultRetryDelay,
		Enabled:           true,
	}
}

// Normalize fills unset durations with defaults. A negative MaxRetries means
// "use the default".
func (c Config) Normalize() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.ActivityTimeout <= 0 {
		c.ActivityTimeout = DefaultActivityTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

func (c Config) Validate() error {
	if err := validators.New().Struct(c); err != nil {
		return fmt.Errorf("invalid monitor config: %w", err)
	}
	return nil
}
