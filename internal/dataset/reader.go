package dataset

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ReadReviews loads all review rows from a parquet file, preserving row
// order. Row order is the pipeline's record identity, so this is the only
// place input order is established.
func ReadReviews(path string) ([]Review, error) {
	rows, err := parquet.ReadFile[Review](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

// Texts extracts the configured text column from every review, in order.
func Texts(reviews []Review, column string) ([]string, error) {
	texts := make([]string, len(reviews))
	for i, r := range reviews {
		t, err := r.Text(column)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		texts[i] = t
	}
	return texts, nil
}
