package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/junhyuk-choi/labelpipe/internal/dataset"
	"github.com/junhyuk-choi/labelpipe/internal/label"
	"github.com/junhyuk-choi/labelpipe/internal/llm"
	"github.com/junhyuk-choi/labelpipe/internal/metrics"
)

// Options carries the scheduling configuration for a labeling run.
type Options struct {
	BatchSize          int
	Concurrency        int
	MaxRetries         int
	BackoffMin         time.Duration
	BackoffMax         time.Duration
	CheckpointInterval int
	TextColumn         string
	CheckpointDir      string
}

// Result summarizes one finished (or stopped) labeling run.
type Result struct {
	Input           string
	State           State
	TotalRecords    int
	TotalBatches    int
	SkippedBatches  int
	DoneBatches     int // batches merged, including restored ones
	LabeledRecords  int
	FallbackRecords int
	OutputParquet   string
	OutputCSV       string
}

// Runner owns the lifecycle of labeling jobs: load checkpoint, dispatch the
// remaining batches, and guarantee the drain-and-save sequence on every exit
// path.
type Runner struct {
	opts       Options
	classifier Classifier
	collector  *metrics.Collector
	tracker    *Tracker

	// saveMu serializes the checkpoint + intermediate-snapshot pair.
	// Periodic triggers fire from concurrent completion callbacks, and the
	// snapshot write must not interleave with another trigger's.
	saveMu sync.Mutex
}

// NewRunner creates a runner. collector and tracker may not be nil.
func NewRunner(opts Options, classifier Classifier, collector *metrics.Collector, tracker *Tracker) *Runner {
	return &Runner{
		opts:       opts,
		classifier: &instrumentedClassifier{inner: classifier, collector: collector},
		collector:  collector,
		tracker:    tracker,
	}
}

// Tracker returns the progress tracker observers may poll.
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

// Run labels one input file end to end. Cancelling ctx is the interrupt
// path: in-flight batches drain, the checkpoint and intermediate snapshot
// are written, and the run ends resumable. The returned Result is non-nil
// whenever progress state was established, even on error.
func (r *Runner) Run(ctx context.Context, input string) (*Result, error) {
	paths := dataset.PathsFor(input, r.opts.CheckpointDir)

	reviews, err := dataset.ReadReviews(paths.Input)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("input %s has no rows", input)
	}
	texts, err := dataset.Texts(reviews, r.opts.TextColumn)
	if err != nil {
		return nil, err
	}

	batches := Partition(len(reviews), r.opts.BatchSize)
	agg := NewAggregator(len(reviews), r.opts.CheckpointInterval)
	store := NewStore(paths.Checkpoint)

	r.tracker.setState(StateLoading)
	runID := uuid.New().String()[:8]
	skipped := 0

	cp, err := store.Load()
	if err != nil {
		slog.Warn("checkpoint unreadable, starting fresh", "path", store.Path(), "error", err)
		cp = nil
	}
	if cp != nil {
		if err := cp.Compatible(len(reviews), r.opts.BatchSize); err != nil {
			return nil, fmt.Errorf("checkpoint %s is incompatible with this run: %w (delete it to start over)", store.Path(), err)
		}
		agg.Seed(cp)
		runID = cp.RunID
		skipped = len(cp.CompletedBatches)
		slog.Info("resuming from checkpoint", "run_id", runID, "completed_batches", skipped, "total_batches", len(batches))
	}

	result := &Result{
		Input:          input,
		TotalRecords:   len(reviews),
		TotalBatches:   len(batches),
		SkippedBatches: skipped,
		OutputParquet:  paths.OutputParquet,
		OutputCSV:      paths.OutputCSV,
	}

	pending := make([]Batch, 0, len(batches)-skipped)
	for _, b := range batches {
		if !agg.IsCompleted(b.Index) {
			pending = append(pending, b)
		}
	}

	r.tracker.start(input, len(batches), len(reviews), skipped)
	slog.Info("dispatching batches",
		"run_id", runID, "input", input, "records", len(reviews),
		"batch_size", r.opts.BatchSize, "batches", len(batches),
		"pending", len(pending), "concurrency", r.opts.Concurrency)

	saveProgress := func() error {
		r.saveMu.Lock()
		defer r.saveMu.Unlock()

		start := time.Now()
		if err := store.Save(agg.Checkpoint(runID, len(reviews), r.opts.BatchSize)); err != nil {
			return err
		}
		r.collector.RecordTiming(metrics.OpCheckpointSave, time.Since(start))
		if err := r.writeIntermediate(paths.Intermediate, reviews, agg); err != nil {
			return err
		}
		valid, fallback, pendingCount := agg.Counts()
		slog.Info("progress saved", "labeled", valid, "fallback", fallback, "pending", pendingCount)
		return nil
	}

	dispatcher := NewDispatcher(
		r.classifier,
		Backoff{Min: r.opts.BackoffMin, Max: r.opts.BackoffMax},
		r.opts.MaxRetries,
		r.opts.Concurrency,
		r.retryHook(),
	)

	dispatchErr := dispatcher.Run(ctx, pending, texts, func(b Batch, results []label.Result, comp *llm.Completion) error {
		if comp == nil {
			r.collector.RecordFallbackBatch()
		}
		due, err := agg.MergeBatch(b, results)
		if err != nil {
			return err
		}
		r.tracker.batchDone()
		if due {
			if err := saveProgress(); err != nil {
				return err
			}
		}
		return nil
	})

	if dispatchErr != nil {
		state := StateFatal
		if ctx.Err() != nil && errors.Is(dispatchErr, context.Canceled) {
			state = StateInterrupted
		}
		result.State = state
		r.tracker.fail(state, dispatchErr)

		// Drain already happened inside the dispatcher; persist what we
		// have so the run resumes where it stopped.
		if err := saveProgress(); err != nil {
			slog.Error("failed to save progress during shutdown", "error", err)
		}
		valid, fallback, _ := agg.Counts()
		result.LabeledRecords = valid
		result.FallbackRecords = fallback
		result.DoneBatches = agg.CompletedCount()

		if state == StateInterrupted {
			slog.Warn("run interrupted, progress saved", "input", input, "completed_batches", agg.CompletedCount(), "total_batches", len(batches))
			return result, fmt.Errorf("interrupted: %w", dispatchErr)
		}
		slog.Error("run stopped on fatal error, progress saved", "input", input, "error", dispatchErr)
		return result, fmt.Errorf("fatal: %w", dispatchErr)
	}

	// Persist the completed state before the final writes so a crash while
	// writing outputs stays resumable.
	if err := saveProgress(); err != nil {
		result.State = StateFatal
		r.tracker.fail(StateFatal, err)
		return result, fmt.Errorf("save final checkpoint: %w", err)
	}

	if err := r.writeFinal(paths, reviews, agg); err != nil {
		result.State = StateFatal
		r.tracker.fail(StateFatal, err)
		return result, err
	}

	valid, fallback, pendingCount := agg.Counts()
	if pendingCount != 0 {
		result.State = StateFatal
		err := fmt.Errorf("run finished with %d unmerged records", pendingCount)
		r.tracker.fail(StateFatal, err)
		return result, err
	}
	result.LabeledRecords = valid
	result.FallbackRecords = fallback
	result.DoneBatches = agg.CompletedCount()
	result.State = StateCompleted
	r.tracker.setState(StateCompleted)

	// The final outputs supersede the checkpoint and snapshot.
	if err := store.Remove(); err != nil {
		slog.Warn("failed to remove checkpoint", "error", err)
	}
	if err := os.Remove(paths.Intermediate); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove intermediate snapshot", "path", paths.Intermediate, "error", err)
	}

	slog.Info("run complete",
		"input", input, "records", len(reviews), "labeled", valid,
		"fallback", fallback, "skipped_batches", skipped,
		"parquet", paths.OutputParquet, "csv", paths.OutputCSV)
	return result, nil
}

// retryHook feeds retry events into the collector.
func (r *Runner) retryHook() func(llm.ErrorKind) {
	return func(kind llm.ErrorKind) {
		if kind == llm.KindRateLimit {
			r.collector.RecordRateLimitRetry()
		} else {
			r.collector.RecordTransientRetry()
		}
	}
}

// writeIntermediate snapshots the merged dataset so far. Pending records get
// zero-valued labels with label_valid=false; the snapshot is replaced on the
// next trigger and deleted on success.
func (r *Runner) writeIntermediate(path string, reviews []dataset.Review, agg *Aggregator) error {
	results := agg.Results()
	rows := make([]dataset.LabeledReview, len(reviews))
	for i, rev := range reviews {
		if results[i] != nil {
			rows[i] = dataset.Join(rev, *results[i])
		} else {
			rows[i] = dataset.Join(rev, label.Result{})
		}
	}
	if err := dataset.WriteParquet(path, rows); err != nil {
		return fmt.Errorf("write intermediate snapshot: %w", err)
	}
	return nil
}

// writeFinal writes the labeled dataset in both output representations, in
// input order.
func (r *Runner) writeFinal(paths dataset.JobPaths, reviews []dataset.Review, agg *Aggregator) error {
	results := agg.Results()
	rows := make([]dataset.LabeledReview, len(reviews))
	for i, rev := range reviews {
		if results[i] == nil {
			return fmt.Errorf("record %d has no result", i)
		}
		rows[i] = dataset.Join(rev, *results[i])
	}

	if err := dataset.WriteParquet(paths.OutputParquet, rows); err != nil {
		return fmt.Errorf("write labeled parquet: %w", err)
	}
	if err := dataset.WriteLabeledCSV(paths.OutputCSV, rows); err != nil {
		return fmt.Errorf("write labeled csv: %w", err)
	}
	return nil
}

// instrumentedClassifier times every service call for the metrics collector.
type instrumentedClassifier struct {
	inner     Classifier
	collector *metrics.Collector
}

func (c *instrumentedClassifier) Classify(ctx context.Context, texts []string) (*llm.Completion, error) {
	start := time.Now()
	comp, err := c.inner.Classify(ctx, texts)
	if err != nil {
		return nil, err
	}
	c.collector.RecordClassify(time.Since(start), int64(comp.InputTokens), int64(comp.OutputTokens))
	return comp, nil
}
