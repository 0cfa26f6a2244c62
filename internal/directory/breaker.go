package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUpstreamUnavailable marks a directory fetch that failed or was short-circuited.
var ErrUpstreamUnavailable = errors.New("directory: upstream unavailable")

// BreakerSettings tunes the circuit breaker around the upstream call.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before a trial call is allowed.
	OpenTimeout time.Duration
	// CallTimeout bounds every upstream call; expiry counts as a failure.
	CallTimeout time.Duration
}

// DefaultBreakerSettings returns the settings used when none are configured.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		CallTimeout:      5 * time.Second,
	}
}

// Breaker guards a Source with a circuit breaker and a per-call timeout.
type Breaker struct {
	upstream    Source
	cb          *gobreaker.CircuitBreaker
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewBreaker wraps upstream.
func NewBreaker(upstream Source, settings BreakerSettings, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultBreakerSettings()
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = defaults.FailureThreshold
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaults.OpenTimeout
	}
	if settings.CallTimeout <= 0 {
		settings.CallTimeout = defaults.CallTimeout
	}

	b := &Breaker{
		upstream:    upstream,
		callTimeout: settings.CallTimeout,
		logger:      logger.With("component", "directory_breaker"),
	}
	threshold := settings.FailureThreshold
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "directory",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return b
}

// FetchAll calls upstream unless the circuit is open. Every failure, including a
// short-circuit, wraps ErrUpstreamUnavailable.
func (b *Breaker) FetchAll(ctx context.Context) ([]User, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
		return b.upstream.FetchAll(callCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	users, _ := result.([]User)
	return users, nil
}

// State reports the breaker state ("closed", "half-open", "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}
