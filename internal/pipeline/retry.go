package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/junhyuk-choi/labelpipe/internal/llm"
)

// Classifier is the external classification service: one network call per
// batch of texts.
type Classifier interface {
	Classify(ctx context.Context, texts []string) (*llm.Completion, error)
}

// Sentinel outcomes of a batch after the retry layer.
var (
	// ErrExhausted marks a batch whose retryable failures outlasted the
	// attempt budget. The batch degrades to fallback results; the job
	// continues.
	ErrExhausted = errors.New("classification attempts exhausted")
	// ErrFatalFailure marks a failure retrying cannot fix. It stops the
	// whole run.
	ErrFatalFailure = errors.New("fatal classification failure")
)

// retrier wraps the classifier with bounded retries driven by the backoff
// schedule. Rate-limit and transient errors are retried; fatal errors
// short-circuit without consuming attempts.
type retrier struct {
	classifier  Classifier
	backoff     Backoff
	maxAttempts int
	onRetry     func(kind llm.ErrorKind) // metrics hook, may be nil

	// sleep is swappable for tests; the default honors ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

func newRetrier(c Classifier, b Backoff, maxAttempts int, onRetry func(llm.ErrorKind)) *retrier {
	return &retrier{
		classifier:  c,
		backoff:     b,
		maxAttempts: maxAttempts,
		onRetry:     onRetry,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// classifyBatch drives one batch to success, exhaustion or fatal failure.
func (r *retrier) classifyBatch(ctx context.Context, batchIndex int, texts []string) (*llm.Completion, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		comp, err := r.classifier.Classify(ctx, texts)
		if err == nil {
			return comp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrFatalFailure, ctx.Err())
		}

		kind := llm.ClassifyError(err)
		if kind == llm.KindFatal {
			return nil, fmt.Errorf("%w: %w", ErrFatalFailure, err)
		}

		if attempt == r.maxAttempts {
			break
		}

		wait := r.backoff.Wait(attempt)
		slog.Warn("batch attempt failed, backing off",
			"batch", batchIndex, "attempt", attempt, "max_attempts", r.maxAttempts,
			"kind", kind.String(), "wait", wait, "error", err)
		if r.onRetry != nil {
			r.onRetry(kind)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFatalFailure, err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.maxAttempts, lastErr)
}
