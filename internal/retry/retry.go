// Package retry runs remote writes with bounded retries and exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Error is returned when an operation fails for good. Message is meant for the user.
type Error struct {
	Message     string
	Attempts    int
	MaxAttempts int
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (after %d attempt(s)): %v", e.Message, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Exhausted reports whether every allowed attempt was used.
func (e *Error) Exhausted() bool {
	return e.Attempts >= e.MaxAttempts
}

// Classifier decides whether a failed attempt may be retried.
type Classifier func(error) bool

// Always retries every error.
func Always(error) bool { return true }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor retries operations classified as transient.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration
	retryable   Classifier
	sleep       SleepFunc
	logger      zerolog.Logger
}

type Option func(*Executor)

func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.baseDelay = d
		}
	}
}

func WithClassifier(c Classifier) Option {
	return func(e *Executor) {
		if c != nil {
			e.retryable = c
		}
	}
}

func WithSleep(s SleepFunc) Option {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// New returns an executor with three attempts, a one second base delay and
// store.IsRetryable as classifier unless overridden.
func New(logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		retryable:   store.IsRetryable,
		sleep:       sleepContext,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Delay returns the wait after the given zero-based failed attempt.
func (e *Executor) Delay(attempt int) time.Duration {
	return e.baseDelay * time.Duration(1<<attempt)
}

// Do runs op until it succeeds, fails with an error that is not retryable, or
// the attempts run out. No wait follows the last attempt.
func (e *Executor) Do(ctx context.Context, message string, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		if !e.retryable(err) {
			e.logger.Error().Err(err).Int("attempt", attempt+1).Msg(message)
			return &Error{Message: message, Attempts: attempt + 1, MaxAttempts: e.maxAttempts, Err: err}
		}
		if attempt == e.maxAttempts-1 {
			break
		}

		delay := e.Delay(attempt)
		e.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("operation failed, retrying")
		if serr := e.sleep(ctx, delay); serr != nil {
			return &Error{Message: message, Attempts: attempt + 1, MaxAttempts: e.maxAttempts, Err: serr}
		}
	}

	e.logger.Error().Err(err).Int("attempts", e.maxAttempts).Msg(message)
	return &Error{Message: message, Attempts: e.maxAttempts, MaxAttempts: e.maxAttempts, Err: err}
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, e *Executor, message string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, message, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
