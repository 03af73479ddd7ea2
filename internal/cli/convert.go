package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/junhyuk-choi/labelpipe/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	convertOutputDir string
	convertParts     int
)

var convertCmd = &cobra.Command{
	Use:   "convert <reviews.json>",
	Short: "Convert a preprocessed reviews JSON file to parquet parts",
	Long: `Read a JSON array of preprocessed reviews and write it as parquet,
split into equal parts so separate labeling runs can share the work.

Examples:
  labelpipe convert json_data/preprocessed_reviews.json
  labelpipe convert reviews.json -d parquet_data -p 4`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutputDir, "output-dir", "d", "parquet_data", "directory for the parquet parts")
	convertCmd.Flags().IntVarP(&convertParts, "parts", "p", 2, "number of parts to split into")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertParts < 1 {
		return fmt.Errorf("parts must be >= 1, got %d", convertParts)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var reviews []dataset.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	if len(reviews) == 0 {
		return fmt.Errorf("%s contains no reviews", args[0])
	}

	fmt.Printf("Total records: %d\n", len(reviews))

	for i, bounds := range partBounds(len(reviews), convertParts) {
		path := filepath.Join(convertOutputDir, fmt.Sprintf("reviews_part%d.parquet", i+1))
		if err := dataset.WriteParquet(path, reviews[bounds[0]:bounds[1]]); err != nil {
			return err
		}
		fmt.Printf("Part %d: %d records -> %s\n", i+1, bounds[1]-bounds[0], path)
	}

	return nil
}

// partBounds splits total records into at most parts contiguous windows.
// Ceiling-sized windows can exhaust the records before the requested part
// count (4 records into 3 parts fill after two windows), so the slice may be
// shorter than parts; it never contains an empty window.
func partBounds(total, parts int) [][2]int {
	if parts > total {
		parts = total
	}

	size := (total + parts - 1) / parts
	bounds := make([][2]int, 0, parts)
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}
