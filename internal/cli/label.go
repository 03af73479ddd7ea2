package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/junhyuk-choi/labelpipe/internal/llm"
	"github.com/junhyuk-choi/labelpipe/internal/metrics"
	"github.com/junhyuk-choi/labelpipe/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	labelBatchSize   int
	labelConcurrency int
	labelModel       string
	labelTextColumn  string
	labelNoProgress  bool
)

var labelCmd = &cobra.Command{
	Use:   "label <input.parquet> [more.parquet...]",
	Short: "Annotate review files with sentiment labels",
	Long: `Label one or more preprocessed review parquet files with aspect-based
sentiment scores. Files are processed sequentially; batches within a file
run concurrently.

An interrupted run saves a checkpoint and can be re-run with the same
arguments to resume where it stopped.

Examples:
  labelpipe label parquet_data/reviews_part1.parquet
  labelpipe label parquet_data/reviews_part*.parquet -b 30 -c 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLabel,
}

func init() {
	labelCmd.Flags().IntVarP(&labelBatchSize, "batch-size", "b", 0, "reviews per classification call (default from config)")
	labelCmd.Flags().IntVarP(&labelConcurrency, "concurrency", "c", 0, "concurrent in-flight calls (default from config)")
	labelCmd.Flags().StringVarP(&labelModel, "model", "m", "", "model name (default from config)")
	labelCmd.Flags().StringVarP(&labelTextColumn, "text-column", "t", "", "text column to classify (default from config)")
	labelCmd.Flags().BoolVar(&labelNoProgress, "no-progress", false, "disable the live progress display")

	rootCmd.AddCommand(labelCmd)
}

func runLabel(cmd *cobra.Command, args []string) error {
	if labelBatchSize > 0 {
		cfg.BatchSize = labelBatchSize
	}
	if labelConcurrency > 0 {
		cfg.Concurrency = labelConcurrency
	}
	if labelModel != "" {
		cfg.Model = labelModel
	}
	if labelTextColumn != "" {
		cfg.TextColumn = labelTextColumn
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, input := range args {
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("input file: %w", err)
		}
	}

	classifier, err := llm.NewClassifier(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	opts := pipeline.Options{
		BatchSize:          cfg.BatchSize,
		Concurrency:        cfg.Concurrency,
		MaxRetries:         cfg.MaxRetries,
		BackoffMin:         cfg.BackoffMin,
		BackoffMax:         cfg.BackoffMax,
		CheckpointInterval: cfg.CheckpointInterval,
		TextColumn:         cfg.TextColumn,
		CheckpointDir:      cfg.CheckpointDir,
	}

	for i, input := range args {
		if len(args) > 1 {
			fmt.Printf("\n== File %d/%d: %s ==\n", i+1, len(args), input)
		}

		tracker := pipeline.NewTracker()
		runner := pipeline.NewRunner(opts, classifier, collector, tracker)

		result, err := runOne(ctx, runner, tracker, input)
		if result != nil {
			printRunSummary(result)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || (result != nil && result.State == pipeline.StateInterrupted) {
				fmt.Println("Interrupted. Re-run the same command to resume.")
			}
			printMetrics(collector)
			return err
		}
	}

	printMetrics(collector)
	return nil
}

// runOne executes one file's run, with the live progress display unless
// disabled. Ctrl+C inside the display cancels the run context, which takes
// the normal interrupt path: drain, checkpoint, exit.
func runOne(ctx context.Context, runner *pipeline.Runner, tracker *pipeline.Tracker, input string) (*pipeline.Result, error) {
	if labelNoProgress {
		return runner.Run(ctx, input)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var (
		result *pipeline.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = runner.Run(runCtx, input)
	}()

	if err := showProgress(ctx, tracker, done, cancelRun); err != nil {
		// The display failing is not a reason to stop the run.
		fmt.Fprintf(os.Stderr, "Warning: progress display unavailable: %v\n", err)
	}

	<-done
	return result, runErr
}

func printRunSummary(r *pipeline.Result) {
	switch r.State {
	case pipeline.StateCompleted:
		fmt.Printf("Completed: %d records (%d labeled, %d fallback)\n", r.TotalRecords, r.LabeledRecords, r.FallbackRecords)
		if r.SkippedBatches > 0 {
			fmt.Printf("Resumed:   %d/%d batches were already complete\n", r.SkippedBatches, r.TotalBatches)
		}
		fmt.Printf("Parquet:   %s\nCSV:       %s\n", r.OutputParquet, r.OutputCSV)
	case pipeline.StateInterrupted:
		fmt.Printf("Stopped: %d/%d batches complete, checkpoint saved\n", r.DoneBatches, r.TotalBatches)
	case pipeline.StateFatal:
		fmt.Printf("Failed: progress saved, %d records labeled so far\n", r.LabeledRecords+r.FallbackRecords)
	}
}

func printMetrics(c *metrics.Collector) {
	snap := c.Snapshot()
	if snap.Classify == nil {
		return
	}
	fmt.Printf("Calls:     %d classify calls, avg %.0fms\n", snap.Classify.Count, snap.Classify.AvgTimeMs)
	if snap.Classify.TotalInputTokens != nil {
		fmt.Printf("Tokens:    %d in / %d out\n", *snap.Classify.TotalInputTokens, *snap.Classify.TotalOutputTokens)
	}
	if snap.RateLimitRetries+snap.TransientRetries > 0 {
		fmt.Printf("Retries:   %d rate-limit, %d transient\n", snap.RateLimitRetries, snap.TransientRetries)
	}
	if snap.FallbackBatches > 0 {
		fmt.Printf("Degraded:  %d batches fell back after exhausting retries\n", snap.FallbackBatches)
	}
}
