package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/junhyuk-choi/labelpipe/internal/dataset"
	"github.com/junhyuk-choi/labelpipe/internal/preprocess"
	"github.com/spf13/cobra"
)

var (
	preprocessOutput    string
	preprocessMinLength int
	preprocessBaseDate  string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <raw-dir>",
	Short: "Clean raw scraped reviews into a labelable parquet table",
	Long: `Read scraped restaurant JSON files from a directory, filter invalid and
duplicate reviews, clean the text, and write one merged parquet file ready
for labeling. A JSON stats report with the filter counts is written beside
the output.

Examples:
  labelpipe preprocess json_data/ -o parquet_data/reviews.parquet
  labelpipe preprocess json_data/ --min-length 30 --base-date 2025.11.16`,
	Args: cobra.ExactArgs(1),
	RunE: runPreprocess,
}

func init() {
	preprocessCmd.Flags().StringVarP(&preprocessOutput, "output", "o", "preprocessed_reviews.parquet", "output parquet path")
	preprocessCmd.Flags().IntVar(&preprocessMinLength, "min-length", 20, "minimum review length in runes after cleaning")
	preprocessCmd.Flags().StringVar(&preprocessBaseDate, "base-date", "", "base date for relative dates (YYYY.MM.DD, default today)")

	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	var base time.Time
	if preprocessBaseDate != "" {
		var err error
		base, err = time.Parse("2006.01.02", preprocessBaseDate)
		if err != nil {
			return fmt.Errorf("parse base date: %w", err)
		}
	}

	p := preprocess.NewPreprocessor(preprocessMinLength, base)
	rows, err := p.ProcessDir(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no reviews survived preprocessing")
	}

	if err := dataset.WriteParquet(preprocessOutput, rows); err != nil {
		return err
	}

	statsPath := preprocessOutput[:len(preprocessOutput)-len(filepath.Ext(preprocessOutput))] + "_stats.json"
	stats := p.Stats()
	if err := preprocess.WriteStats(statsPath, stats); err != nil {
		return err
	}

	dropped := stats.FilteredNoReviewID + stats.FilteredDuplicate +
		stats.FilteredEmptyText + stats.FilteredTooShort + stats.FilteredShortAfterClean
	fmt.Printf("Processed: %d reviews from %d files (%d filtered)\n", stats.Processed, stats.Files, dropped)
	fmt.Printf("Output:    %s\nStats:     %s\n", preprocessOutput, statsPath)
	return nil
}
