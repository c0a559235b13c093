// Package breaker implements a circuit breaker for remote storage
// calls. Consecutive transport failures open the circuit; while open,
// calls fail fast instead of hammering a dead endpoint. After a
// cooldown the breaker lets probe calls through and closes again on
// success.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/anyfs/anyfs/pkg/fserrors"
)

// State is the breaker's position.
type State int

const (
	// StateClosed passes calls through.
	StateClosed State = iota
	// StateOpen fails calls fast.
	StateOpen
	// StateHalfOpen lets probe calls test the endpoint.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is the cause carried by errors returned while the circuit is
// open.
var ErrOpen = errors.New("circuit breaker open")

// Config controls when the breaker trips and recovers.
type Config struct {
	// FailureThreshold is the number of consecutive transport
	// failures that opens the circuit.
	FailureThreshold int `yaml:"failure_threshold"`
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration `yaml:"cooldown"`
	// SuccessThreshold is the number of consecutive probe successes
	// that closes the circuit again.
	SuccessThreshold int `yaml:"success_threshold"`
}

// DefaultConfig returns the trip behavior used when callers pass nil.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 1,
	}
}

// Breaker tracks consecutive failures of an endpoint. Only errors the
// taxonomy marks retryable count as failures; logical errors like a
// missing key say nothing about endpoint health.
type Breaker struct {
	cfg *Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New creates a Breaker. A nil config gets defaults.
func New(cfg *Config) *Breaker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	return &Breaker{cfg: cfg}
}

// Allow reports whether a call may proceed. While the circuit is open
// it returns a retryable error carrying ErrOpen.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if time.Since(b.openedAt) < b.cfg.Cooldown {
			return fserrors.RemoteConnection("breaker", ErrOpen)
		}
		b.state = StateHalfOpen
		b.successes = 0
	}
	return nil
}

// Record feeds a call result back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil && fserrors.IsRetryable(err) {
		b.failures++
		b.successes = 0
		if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.openedAt = time.Now()
			b.failures = 0
		}
		return
	}
	// success, or a logical error that says nothing about the endpoint
	b.failures = 0
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.successes = 0
		}
	case StateOpen:
		// stale result from a call that started before the trip
	}
}

// Do runs op if the circuit allows it and records the outcome.
func (b *Breaker) Do(op func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := op()
	b.Record(err)
	return err
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
