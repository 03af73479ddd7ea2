package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/junhyuk-choi/labelpipe/internal/label"
	"github.com/junhyuk-choi/labelpipe/internal/llm"
)

// Dispatcher drives pending batches through the retry layer with at most
// concurrency calls in flight. Completions are routed to onBatch tagged with
// their batch, in arrival order; the aggregator restores record order.
type Dispatcher struct {
	retrier     *retrier
	concurrency int
}

// NewDispatcher creates a dispatcher over the given classifier.
func NewDispatcher(c Classifier, b Backoff, maxAttempts, concurrency int, onRetry func(llm.ErrorKind)) *Dispatcher {
	return &Dispatcher{
		retrier:     newRetrier(c, b, maxAttempts, onRetry),
		concurrency: concurrency,
	}
}

// Run processes the pending batches. texts is the full input; each batch
// slices its own window. onBatch is called once per completed batch (real
// results or fallbacks) from worker goroutines and must be safe for
// concurrent use.
//
// A fatal classification failure cancels the run: no new batch starts,
// in-flight batches drain, and the fatal error is returned. Context
// cancellation from outside behaves the same way but returns ctx's cause.
func (d *Dispatcher) Run(ctx context.Context, pending []Batch, texts []string, onBatch func(Batch, []label.Result, *llm.Completion) error) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		processed     atomic.Int32
		fallbackCount atomic.Int32
		wg            sync.WaitGroup
	)

	workChan := make(chan Batch, len(pending))

	workers := d.concurrency
	if workers > len(pending) {
		workers = len(pending)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for b := range workChan {
				if ctx.Err() != nil {
					// Drain without submitting new calls.
					continue
				}

				done := processed.Add(1)
				slog.Info("classifying batch", "worker", workerID, "batch", b.Index, "records", b.Len(), "progress", fmt.Sprintf("%d/%d", done, len(pending)))

				batchTexts := texts[b.Start:b.End]
				comp, err := d.retrier.classifyBatch(ctx, b.Index, batchTexts)

				var results []label.Result
				switch {
				case err == nil:
					results = label.Parse(comp.Content, b.Len())
				case errors.Is(err, ErrExhausted):
					slog.Error("batch degraded to fallback results", "batch", b.Index, "records", b.Len(), "error", err)
					fallbackCount.Add(1)
					results = fallbackBatch(b, err)
					comp = nil
				default:
					// Fatal: stop feeding, let in-flight work drain.
					slog.Error("fatal failure, stopping dispatch", "batch", b.Index, "error", err)
					cancel(err)
					continue
				}

				if cbErr := onBatch(b, results, comp); cbErr != nil {
					cancel(fmt.Errorf("merge batch %d: %w", b.Index, cbErr))
				}
			}
		}(i)
	}

	// Feed in ascending batch order; stop as soon as cancellation is
	// observed so no new work is submitted after an interrupt.
feed:
	for _, b := range pending {
		select {
		case <-ctx.Done():
			break feed
		case workChan <- b:
		}
	}
	close(workChan)

	wg.Wait()

	if n := fallbackCount.Load(); n > 0 {
		slog.Warn("batches exhausted retries this run", "count", n)
	}

	if cause := context.Cause(ctx); cause != nil && ctx.Err() != nil {
		return cause
	}
	return nil
}

// fallbackBatch builds one sentinel result per record in a failed batch.
func fallbackBatch(b Batch, err error) []label.Result {
	diag := fmt.Sprintf("batch %d failed: %v", b.Index, err)
	results := make([]label.Result, b.Len())
	for i := range results {
		results[i] = label.Fallback(diag)
	}
	return results
}
