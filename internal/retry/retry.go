// Package retry runs operations against remote storage with
// exponential backoff. Only errors the taxonomy marks retryable
// (remote connection failures and timeouts) are retried.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/anyfs/anyfs/pkg/fserrors"
)

// Config controls backoff behavior.
type Config struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
}

// DefaultConfig returns the backoff used when callers pass nil.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retryer retries operations according to its config.
type Retryer struct {
	cfg *Config
}

// New creates a Retryer. A nil config gets defaults.
func New(cfg *Config) *Retryer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Retryer{cfg: cfg}
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// attempts run out, or the context ends. The last error is returned.
func (r *Retryer) Do(ctx context.Context, op func() error) error {
	var err error
	delay := r.cfg.InitialDelay
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !fserrors.IsRetryable(err) || attempt == r.cfg.MaxAttempts {
			return err
		}
		wait := delay
		if r.cfg.Jitter {
			wait += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
	return err
}
