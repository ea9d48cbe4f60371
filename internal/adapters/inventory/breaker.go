package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/logger"
	"github.com/okian/rigmatch/pkg/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Default breaker settings.
const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
	defaultHalfOpenRequests = 1
)

// BreakerOption configures a BreakerOracle.
type BreakerOption func(*breakerConfig)

type breakerConfig struct {
	name             string
	failureThreshold uint32
	openTimeout      time.Duration
	log              logger.Logger
}

// WithFailureThreshold opens the circuit after n consecutive failures.
func WithFailureThreshold(n int) BreakerOption {
	return func(c *breakerConfig) {
		if n > 0 {
			c.failureThreshold = uint32(n)
		}
	}
}

// WithOpenTimeout sets how long the circuit stays open before probing.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		if d > 0 {
			c.openTimeout = d
		}
	}
}

// WithBreakerLogger sets the logger for state transitions.
func WithBreakerLogger(l logger.Logger) BreakerOption {
	return func(c *breakerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// BreakerOracle guards an Oracle with a circuit breaker. While the circuit
// is open lookups fail immediately with ErrOracleUnavailable.
type BreakerOracle struct {
	next Oracle
	cb   *gobreaker.CircuitBreaker[bool]
}

// NewBreakerOracle wraps next.
func NewBreakerOracle(next Oracle, opts ...BreakerOption) *BreakerOracle {
	cfg := breakerConfig{
		name:             "inventory-oracle",
		failureThreshold: defaultFailureThreshold,
		openTimeout:      defaultOpenTimeout,
		log:              logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics.UpdateOracleBreakerState(int(gobreaker.StateClosed))
	settings := gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: defaultHalfOpenRequests,
		Timeout:     cfg.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateOracleBreakerState(int(to))
			cfg.log.Warn(context.Background(), "inventory oracle circuit changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
		// a cancelled request says nothing about the inventory's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerOracle{next: next, cb: gobreaker.NewCircuitBreaker[bool](settings)}
}

// Exists implements Oracle.
func (b *BreakerOracle) Exists(ctx context.Context, id int, category model.Category) (bool, error) {
	ok, err := b.cb.Execute(func() (bool, error) {
		return b.next.Exists(ctx, id, category)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return ok, err
}

// State returns the circuit state name.
func (b *BreakerOracle) State() string {
	return b.cb.State().String()
}
