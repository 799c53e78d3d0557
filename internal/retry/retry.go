// Package retry re-runs upstream calls that fail with rate-limit style errors.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/obs"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 2 * time.Second
)

// Classifier reports whether err is worth another attempt.
type Classifier func(err error) bool

type Policy struct {
	// Name labels log lines and metrics.
	Name       string
	MaxRetries int
	BaseDelay  time.Duration
	Retryable  Classifier

	// BackOff builds the delay schedule for one Do call. Defaults to doubling
	// from BaseDelay without jitter.
	BackOff func() backoff.BackOff

	// Sleep waits between attempts; tests replace it to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error

	Log logrus.FieldLogger
}

func DefaultPolicy(name string, log logrus.FieldLogger) Policy {
	return Policy{
		Name:       name,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Retryable:  IsRateLimited,
		Log:        log,
	}
}

// HTTPStatusError is implemented by upstream errors that carry a status code.
type HTTPStatusError interface {
	HTTPStatus() int
}

// IsRateLimited matches HTTP 429 responses and rate-limit messages.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var se HTTPStatusError
	if errors.As(err, &se) && se.HTTPStatus() == 429 {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// Do runs op until it succeeds, fails with a non-retryable error, or MaxRetries
// retries have been spent. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	b := p.BackOff()
	b.Reset()

	var (
		zero    T
		lastErr error
	)

	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= p.MaxRetries || !p.Retryable(err) {
			return zero, lastErr
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return zero, lastErr
		}

		p.Log.WithFields(logrus.Fields{
			"operation": p.Name,
			"attempt":   attempt + 1,
			"max":       p.MaxRetries,
			"delay":     delay.String(),
		}).Warn("rate limited, retrying")
		obs.RetryAttempts.WithLabelValues(p.Name).Inc()

		if err := p.Sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}
}

func (p Policy) withDefaults() Policy {
	if p.Name == "" {
		p.Name = "upstream"
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = IsRateLimited
	}
	if p.BackOff == nil {
		base := p.BaseDelay
		p.BackOff = func() backoff.BackOff { return Doubling(base) }
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	if p.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		p.Log = l
	}
	return p
}

// Doubling yields base, 2*base, 4*base, ... with no randomization.
func Doubling(base time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = base << 10
	return b
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
