// Package retry wraps operations in a bounded retry loop with a timeout,
// an interval between attempts, and an allowlist of retryable error kinds.
// Assertion failures are always retryable; anything else propagates on
// first occurrence. The loop composes with the step hierarchy: in reset
// mode the step numbering of the current worker starts fresh on every
// attempt, otherwise numbering is cumulative across attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/testrig/packages/assert"
	"github.com/abdul-hamid-achik/testrig/packages/core/steps"
	"github.com/abdul-hamid-achik/testrig/packages/log"
	"github.com/abdul-hamid-achik/testrig/packages/stats"
)

const (
	// DefaultTimeout bounds the whole retry loop.
	DefaultTimeout = 10 * time.Second
	// DefaultInterval is the sleep between attempts.
	DefaultInterval = 500 * time.Millisecond
)

// Resetter clears a worker's step-numbering state between attempts.
// *steps.Tracker implements it.
type Resetter interface {
	ResetWorker(ctx context.Context, workerID string) error
}

// TimeoutError reports that retryable failures persisted past the timeout.
type TimeoutError struct {
	// Attempts is the number of completed attempts.
	Attempts int
	// Elapsed is the time since the first attempt started.
	Elapsed time.Duration
	// Name labels the wrapped operation in the message.
	Name string
	// Message is the caller-supplied context, may be empty.
	Message string
	// LastErr is the last retryable error caught before giving up.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout after %.2fs waiting for %s (attempts: %d)",
		e.Elapsed.Seconds(), e.Name, e.Attempts)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.LastErr != nil {
		msg = fmt.Sprintf("%s. Last error: %s", msg, e.LastErr.Error())
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

type config struct {
	timeout    time.Duration
	interval   time.Duration
	retryOn    []error
	retryMatch func(error) bool
	message    string
	name       string
	resetter   Resetter
	logger     *log.Logger
	recorder   *stats.Recorder
}

// Option configures Until and UntilValue.
type Option func(*config)

// WithTimeout sets the maximum total wait.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithInterval sets the sleep between attempts.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.interval = d }
}

// WithRetryOn adds error values matched via errors.Is to the retryable set.
func WithRetryOn(targets ...error) Option {
	return func(c *config) { c.retryOn = append(c.retryOn, targets...) }
}

// WithRetryMatch adds a predicate deciding whether an error is retryable.
func WithRetryMatch(fn func(error) bool) Option {
	return func(c *config) { c.retryMatch = fn }
}

// WithErrorMessage adds caller context to a timeout error.
func WithErrorMessage(msg string) Option {
	return func(c *config) { c.message = msg }
}

// WithName labels the operation in logs and timeout messages.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithReset enables reset mode: r clears the worker's step numbering
// before each retry attempt.
func WithReset(r Resetter) Option {
	return func(c *config) { c.resetter = r }
}

// WithLogger directs diagnostics to l.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRecorder samples each attempt's duration into r.
func WithRecorder(r *stats.Recorder) Option {
	return func(c *config) { c.recorder = r }
}

func newConfig(opts []Option) *config {
	c := &config{
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
		name:     "condition",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// retryable reports whether err may be retried. Assertion failures always
// qualify; other errors qualify through WithRetryOn targets or the
// WithRetryMatch predicate. A TimeoutError is terminal even when it wraps
// an assertion failure, so nested retry loops cannot extend each other's
// budgets.
func (c *config) retryable(err error) bool {
	var terr *TimeoutError
	if errors.As(err, &terr) {
		return false
	}
	if assert.IsFailure(err) {
		return true
	}
	for _, target := range c.retryOn {
		if errors.Is(err, target) {
			return true
		}
	}
	return c.retryMatch != nil && c.retryMatch(err)
}

// Until invokes fn until it returns nil, a non-retryable error occurs, or
// the timeout elapses. A nil return from fn is success. The in-flight
// attempt always runs to completion; elapsed time is only re-checked
// between attempts.
func Until(ctx context.Context, fn func() error, opts ...Option) error {
	c := newConfig(opts)
	start := time.Now()
	attempt := 1

	for {
		if c.resetter != nil && attempt > 1 {
			c.logger.Debug("resetting steps for attempt", "attempt", attempt)
			if err := c.resetter.ResetWorker(ctx, steps.WorkerID()); err != nil {
				// Reset is bookkeeping; it must not replace the caller's
				// failure mode.
				c.logger.Error("step reset failed", "error", err)
			}
		}

		c.logger.Debug("starting attempt", "attempt", attempt, "name", c.name)
		attemptStart := time.Now()
		err := fn()
		if c.recorder != nil {
			c.recorder.Record(time.Since(attemptStart))
		}

		if err == nil {
			return nil
		}
		if !c.retryable(err) {
			c.logger.Error("non-retryable error", "name", c.name, "error", err)
			return err
		}

		elapsed := time.Since(start)
		if elapsed > c.timeout {
			terr := &TimeoutError{
				Attempts: attempt,
				Elapsed:  elapsed,
				Name:     c.name,
				Message:  c.message,
				LastErr:  err,
			}
			c.logger.Error(terr.Error())
			return terr
		}

		c.logger.Debug("attempt failed", "attempt", attempt, "error", err)
		time.Sleep(c.interval)
		attempt++
	}
}

// UntilValue is Until for operations producing a value; the first
// successful value wins.
func UntilValue[T any](ctx context.Context, fn func() (T, error), opts ...Option) (T, error) {
	var out T
	err := Until(ctx, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts...)
	return out, err
}
