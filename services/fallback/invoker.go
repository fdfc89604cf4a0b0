// Package fallback runs a unit of work against an ordered list of candidate
// models, returning the first success or the last failure.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/upb/llm-fallback-proxy/services/providers"
	"go.uber.org/zap"
)

var (
	// ErrNoCandidates is returned by New when the candidate list is empty
	ErrNoCandidates = errors.New("at least one candidate model is required")

	// ErrNilProvider is returned by New when no provider is supplied
	ErrNilProvider = errors.New("provider cannot be nil")

	// ErrAllCandidatesFailed is returned when every candidate was skipped
	// without recording an error
	ErrAllCandidatesFailed = errors.New("all candidate models failed")
)

// Operation is one unit of work executed against a model handle
type Operation[T any] interface {
	Run(ctx context.Context, model providers.Model) (T, error)
}

// Attempt records the outcome of running an operation against one model
type Attempt struct {
	Model    string
	Err      error
	Duration time.Duration
}

// Result is the value produced by the first successful attempt together with
// the attempts made to get there
type Result[T any] struct {
	Value    T
	Model    string
	Attempts []Attempt
}

// Invoker tries candidate models in a fixed priority order
type Invoker struct {
	candidates []string
	provider   providers.Provider
	retry      RetryPolicy
	logger     *zap.Logger
}

// Option configures an Invoker
type Option func(*Invoker)

// WithRetryPolicy sets the policy deciding whether a failure moves on to the
// next candidate. The default is RetryAll.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(inv *Invoker) {
		if policy != nil {
			inv.retry = policy
		}
	}
}

// New creates an Invoker over the given candidates. The slice is copied.
func New(candidates []string, provider providers.Provider, logger *zap.Logger, opts ...Option) (*Invoker, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	inv := &Invoker{
		candidates: append([]string(nil), candidates...),
		provider:   provider,
		retry:      RetryAll,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// Candidates returns a copy of the candidate list in priority order
func (inv *Invoker) Candidates() []string {
	return append([]string(nil), inv.candidates...)
}

// Invoke runs op against each candidate in order. Each candidate gets a
// freshly constructed model handle and is attempted at most once. The first
// success is returned immediately; otherwise the last failure is returned
// unchanged. Iteration stops early when the retry policy rejects a failure or
// ctx is done.
func Invoke[T any](ctx context.Context, inv *Invoker, op Operation[T]) (Result[T], error) {
	var (
		result  Result[T]
		lastErr error
	)

	for i, name := range inv.candidates {
		if err := ctx.Err(); err != nil {
			inv.logger.Debug("fallback aborted",
				zap.String("model", name),
				zap.Int("attempt", i+1),
				zap.Error(err))
			return result, err
		}

		start := time.Now()
		value, err := op.Run(ctx, inv.provider.Model(name))
		attempt := Attempt{Model: name, Err: err, Duration: time.Since(start)}
		result.Attempts = append(result.Attempts, attempt)

		if err == nil {
			result.Value = value
			result.Model = name
			if i > 0 {
				inv.logger.Info("fallback model succeeded",
					zap.String("model", name),
					zap.Int("attempt", i+1),
					zap.Duration("duration", attempt.Duration))
			}
			return result, nil
		}

		lastErr = err
		inv.logger.Warn("model attempt failed",
			zap.String("provider", inv.provider.Name()),
			zap.String("model", name),
			zap.Int("attempt", i+1),
			zap.Int("candidates", len(inv.candidates)),
			zap.Int("status_code", providers.StatusCode(err)),
			zap.Duration("duration", attempt.Duration),
			zap.Error(err))

		if !inv.retry(err) {
			inv.logger.Warn("failure not retryable, skipping remaining candidates",
				zap.String("model", name),
				zap.Error(err))
			return result, err
		}
	}

	if lastErr == nil {
		lastErr = ErrAllCandidatesFailed
	}
	return result, lastErr
}
