// Package resilience guards upstream calls with bounded exponential retries
// and a consecutive-failure circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sony/gobreaker/v2"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

const (
	DefaultRetries          = 3
	DefaultBackoff          = time.Second
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second

	maxInterval = time.Duration(1 << 62)
)

type (
	Config struct {
		Name             string
		Retries          int
		Backoff          time.Duration
		FailureThreshold uint32
		Cooldown         time.Duration
	}

	Policy struct {
		config  Config
		breaker *gobreaker.CircuitBreaker[any]
		logger  log.Logger
	}

	transientError struct {
		err error
	}
)

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		Retries:          DefaultRetries,
		Backoff:          DefaultBackoff,
		FailureThreshold: DefaultFailureThreshold,
		Cooldown:         DefaultCooldown,
	}
}

func (c Config) Validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative, got %d", currency.ErrConfiguration, c.Retries)
	}

	if c.Backoff < 0 {
		return fmt.Errorf("%w: backoff must not be negative, got %s", currency.ErrConfiguration, c.Backoff)
	}

	if c.FailureThreshold == 0 {
		return fmt.Errorf("%w: breaker threshold must be positive", currency.ErrConfiguration)
	}

	if c.Cooldown <= 0 {
		return fmt.Errorf("%w: breaker cooldown must be positive, got %s", currency.ErrConfiguration, c.Cooldown)
	}

	return nil
}

// Transient marks err as retryable and counted by the breaker. Other errors
// are not tracked by the breaker.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func New(config Config, logger log.Logger) *Policy {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	p := &Policy{
		config: config,
		logger: logger,
	}

	p.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: 1,
		Timeout:     config.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			_ = level.Warn(logger).Log("msg", "circuit breaker state changed", "target", name, "from", from, "to", to)
		},
		IsExcluded: func(err error) bool {
			return err != nil && !IsTransient(err)
		},
	})

	return p
}

func (p *Policy) State() string {
	return p.breaker.State().String()
}

func (p *Policy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.Backoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.config.Retries)), ctx)
}

// Execute runs operation through the breaker, retrying transient failures.
// The delay before retry n is Backoff*2^(n-1). Calls rejected by the breaker
// are not retried. Exhausted retries and rejections surface as
// currency.ErrUpstreamUnavailable; any other error is returned unchanged.
func (p *Policy) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	attempts := 0

	attempt := func() error {
		attempts++

		_, err := p.breaker.Execute(func() (any, error) {
			if err := operation(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				return nil, err
			}

			return nil, nil
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(fmt.Errorf("%w: circuit breaker for %s is open", currency.ErrUpstreamUnavailable, p.config.Name))
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case IsTransient(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, wait time.Duration) {
		_ = level.Warn(p.logger).Log(
			"msg", "retrying upstream call",
			"target", p.config.Name,
			"attempt", attempts,
			"wait", wait,
			"err", err,
		)
	}

	err := backoff.RetryNotify(attempt, p.newBackOff(ctx), notify)
	if err == nil {
		return nil
	}

	if IsTransient(err) {
		return fmt.Errorf("%w: %s failed after %d attempts: %v", currency.ErrUpstreamUnavailable, p.config.Name, attempts, err)
	}

	return err
}
