// Package circuitbreaker provides circuit breaker functionality using Sony's gobreaker
package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"webhook-gateway/internal/common/errors"
	"webhook-gateway/internal/common/logging"
)

// Config holds the configuration for a circuit breaker
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// Timeout is how long the circuit stays open before transitioning to half-open
	Timeout time.Duration
	// MaxConcurrentRequests is the maximum number of requests allowed in half-open state
	MaxConcurrentRequests int
	// Interval is the rolling window after which closed-state counts are cleared
	Interval time.Duration
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures:           5,
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 1,
		Interval:              time.Minute,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return fmt.Errorf("MaxFailures must be positive, got %d", c.MaxFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MaxConcurrentRequests must be positive, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means requests flow through
	StateClosed State = iota
	// StateOpen means requests are rejected without being attempted
	StateOpen
	// StateHalfOpen means a few trial requests are let through
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

// Presets for the two upstreams the gateway calls
var (
	// TokenConfig guards the client-credentials endpoint
	TokenConfig = Config{
		MaxFailures:           5,
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 1,
		Interval:              time.Minute,
	}

	// DeliveryConfig guards calls to the bot platform's conversation API
	DeliveryConfig = Config{
		MaxFailures:           10,
		Timeout:               30 * time.Second,
		MaxConcurrentRequests: 2,
		Interval:              time.Minute,
	}
)

// ErrOpen is wrapped by Execute when the call was refused without being attempted
var ErrOpen = stderrors.New("circuit breaker is open")

// GoBreakerAdapter wraps Sony's gobreaker
type GoBreakerAdapter struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
}

// NewGoBreaker creates a new circuit breaker using Sony's gobreaker implementation
func NewGoBreaker(name string, config Config, logger logging.Logger) *GoBreakerAdapter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if err := config.Validate(); err != nil {
		logger.Warn("Invalid circuit breaker config, using defaults",
			logging.Field{Key: "error", Value: err.Error()},
			logging.Field{Key: "name", Value: name},
		)
		config = DefaultConfig()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				logging.Field{Key: "breaker", Value: name},
				logging.Field{Key: "from", Value: from.String()},
				logging.Field{Key: "to", Value: to.String()},
			)
		},
		IsSuccessful: isSuccessful,
	}

	return &GoBreakerAdapter{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// isSuccessful decides which errors count against the upstream. Errors caused by
// the request itself, and cancellations by our caller, do not.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if stderrors.Is(err, context.Canceled) {
		return true
	}
	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeNotFound, errors.ErrTypeForbidden:
		return true
	}
	return false
}

// Execute runs fn within the circuit breaker. When the circuit refuses the call the
// returned error is an upstream AppError wrapping ErrOpen.
func (g *GoBreakerAdapter) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.UpstreamError(fmt.Sprintf("circuit breaker '%s' refused the call", g.name),
			fmt.Errorf("%w: %v", ErrOpen, err))
	}

	return err
}

// Name returns the breaker name
func (g *GoBreakerAdapter) Name() string {
	return g.name
}

// State returns the current state of the circuit breaker
func (g *GoBreakerAdapter) State() State {
	switch g.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// IsOpen returns true if the circuit breaker is open
func (g *GoBreakerAdapter) IsOpen() bool {
	return g.State() == StateOpen
}

// Counts returns the current counts from gobreaker
func (g *GoBreakerAdapter) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}
