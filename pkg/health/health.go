// Package health tracks the availability of filesystem backends. A
// Checker probes a filesystem with a small write/read/delete round
// trip (or a metadata read on read-only backends) and derives a state
// from consecutive probe outcomes.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anyfs/anyfs/pkg/vfs"
)

// State is the derived availability of a backend.
type State int

const (
	// StateHealthy means probes are passing.
	StateHealthy State = iota
	// StateDegraded means probes are failing but the outage is young.
	StateDegraded
	// StateUnavailable means probes have failed persistently.
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Config controls state transitions.
type Config struct {
	// DegradedThreshold is the number of consecutive probe failures
	// before the backend counts as degraded.
	DegradedThreshold int `yaml:"degraded_threshold"`
	// UnavailableThreshold is the number of consecutive probe
	// failures before the backend counts as unavailable.
	UnavailableThreshold int `yaml:"unavailable_threshold"`
	// RecoveryThreshold is the number of consecutive probe successes
	// needed to report healthy again.
	RecoveryThreshold int `yaml:"recovery_threshold"`
	// ProbePath is the file used for round-trip probes.
	ProbePath string `yaml:"probe_path"`
}

// DefaultConfig returns the thresholds used when callers pass nil.
func DefaultConfig() *Config {
	return &Config{
		DegradedThreshold:    1,
		UnavailableThreshold: 5,
		RecoveryThreshold:    1,
		ProbePath:            "/.anyfs-probe",
	}
}

// Status is a point-in-time snapshot of a backend's health.
type Status struct {
	State             State         `json:"state"`
	LastChecked       time.Time     `json:"last_checked"`
	Latency           time.Duration `json:"latency"`
	LastError         string        `json:"last_error,omitempty"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
}

// Checker probes one filesystem.
type Checker struct {
	fsys   vfs.FS
	cfg    *Config
	logger *zap.Logger

	mu        sync.Mutex
	status    Status
	successes int
}

// NewChecker creates a Checker. Nil config and logger get defaults.
func NewChecker(fsys vfs.FS, cfg *Config, logger *zap.Logger) *Checker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		fsys:   fsys,
		cfg:    cfg,
		logger: logger,
		status: Status{State: StateHealthy},
	}
}

// probe exercises the backend once.
func (c *Checker) probe(ctx context.Context) error {
	if c.fsys.Meta().ReadOnly {
		_, err := c.fsys.GetInfo(ctx, "/")
		return err
	}
	if err := vfs.WriteBytes(ctx, c.fsys, c.cfg.ProbePath, []byte("ok")); err != nil {
		return err
	}
	if _, err := vfs.ReadBytes(ctx, c.fsys, c.cfg.ProbePath); err != nil {
		return err
	}
	return c.fsys.Remove(ctx, c.cfg.ProbePath)
}

// Check runs one probe and returns the updated status.
func (c *Checker) Check(ctx context.Context) Status {
	start := time.Now()
	err := c.probe(ctx)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastChecked = time.Now()
	c.status.Latency = elapsed
	if err != nil {
		c.successes = 0
		c.status.ConsecutiveErrors++
		c.status.LastError = err.Error()
		old := c.status.State
		switch {
		case c.status.ConsecutiveErrors >= c.cfg.UnavailableThreshold:
			c.status.State = StateUnavailable
		case c.status.ConsecutiveErrors >= c.cfg.DegradedThreshold:
			c.status.State = StateDegraded
		}
		if c.status.State != old {
			c.logger.Warn("backend state changed",
				zap.String("from", old.String()),
				zap.String("to", c.status.State.String()),
				zap.Error(err))
		}
		return c.status
	}
	c.status.ConsecutiveErrors = 0
	c.status.LastError = ""
	if c.status.State != StateHealthy {
		c.successes++
		if c.successes >= c.cfg.RecoveryThreshold {
			c.logger.Info("backend recovered",
				zap.String("from", c.status.State.String()))
			c.status.State = StateHealthy
			c.successes = 0
		}
	}
	return c.status
}

// Status returns the last recorded status without probing.
func (c *Checker) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Run probes on an interval until the context ends.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
