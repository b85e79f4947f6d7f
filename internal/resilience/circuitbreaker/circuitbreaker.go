// Package circuitbreaker guards feed fetches with github.com/sony/gobreaker.
// An open breaker rejects calls immediately; nothing is retried.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"ircfeed/internal/observability/metrics"
)

// Config controls when a breaker trips and how long it stays open.
type Config struct {
	Name string
	// MaxRequests is how many probe calls pass while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; zero never clears them.
	Interval time.Duration
	// Timeout is the open period before the breaker goes half-open.
	Timeout time.Duration
	// FailureThreshold is the failure ratio (0..1] that trips the breaker
	// once MinRequests calls were counted.
	FailureThreshold float64
	MinRequests      uint32
}

// FeedFetchConfig returns the breaker settings for feed polling.
// A poll runs once per interval, so the window is wide and the breaker only
// trips after five failures in a row.
func FeedFetchConfig() Config {
	return Config{
		Name:             "feed-fetch",
		MaxRequests:      1,
		Interval:         30 * time.Minute,
		Timeout:          5 * time.Minute,
		FailureThreshold: 1.0,
		MinRequests:      5,
	}
}

// CircuitBreaker is a named gobreaker instance that exports its state.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a breaker in the closed state.
func New(cfg Config) *CircuitBreaker {
	metrics.SetCircuitBreakerState(cfg.Name, int(gobreaker.StateClosed))

	return &CircuitBreaker{
		name: cfg.Name,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:          cfg.Name,
			MaxRequests:   cfg.MaxRequests,
			Interval:      cfg.Interval,
			Timeout:       cfg.Timeout,
			ReadyToTrip:   tripAt(cfg.MinRequests, cfg.FailureThreshold),
			OnStateChange: onStateChange,
		}),
	}
}

func tripAt(minRequests uint32, threshold float64) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		if c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= threshold
	}
}

func onStateChange(name string, from, to gobreaker.State) {
	metrics.SetCircuitBreakerState(name, int(to))
	slog.Warn("circuit breaker state changed",
		slog.String("circuit", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
}

// Execute runs fn through the breaker. While open it returns
// gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// Do is Execute with a typed result.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	v, err := cb.breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

func (cb *CircuitBreaker) State() gobreaker.State { return cb.breaker.State() }

func (cb *CircuitBreaker) Name() string { return cb.name }

// Release drops the breaker's state series. The breaker must not be used
// afterwards.
func (cb *CircuitBreaker) Release() {
	metrics.DeleteCircuitBreakerState(cb.name)
}

// IsOpen reports whether calls are currently rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
