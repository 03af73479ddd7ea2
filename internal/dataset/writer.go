package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// utf8BOM makes the CSV copy open cleanly in spreadsheet tools that guess
// encodings, matching the original export convention.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteParquet writes rows to path atomically: the data goes to a temporary
// file in the same directory which then replaces path, so a crash mid-write
// leaves either the previous file or the new one, never a torn file.
func WriteParquet[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// csvHeader is the flat column order of the labeled CSV export.
var csvHeader = []string{
	"review_id", "original_text", "cleaned_text", "date", "date_valid",
	"language", "rating",
	"restaurant_name", "restaurant_place_id", "restaurant_grid",
	"restaurant_address", "restaurant_rating", "restaurant_phone",
	"char_count", "word_count",
	"food_score", "service_score", "ambience_score", "price_score",
	"hygiene_score", "waiting_score", "accessibility_score",
	"racism_flag", "cash_only_flag", "comment", "label_valid",
}

// WriteLabeledCSV writes the flat tabular copy of the labeled dataset,
// atomically like WriteParquet, with a UTF-8 BOM.
func WriteLabeledCSV(path string, rows []LabeledReview) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := f.Write(utf8BOM); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := w.Write(csvRecord(row)); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush csv: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func csvRecord(r LabeledReview) []string {
	return []string{
		r.ReviewID, r.OriginalText, r.CleanedText, r.Date,
		strconv.FormatBool(r.DateValid),
		r.Language,
		strconv.FormatFloat(r.Rating, 'f', -1, 64),
		r.RestaurantName, r.RestaurantPlaceID, r.RestaurantGrid,
		r.RestaurantAddress,
		strconv.FormatFloat(r.RestaurantRating, 'f', -1, 64),
		r.RestaurantPhone,
		strconv.Itoa(int(r.CharCount)), strconv.Itoa(int(r.WordCount)),
		strconv.Itoa(r.FoodScore), strconv.Itoa(r.ServiceScore),
		strconv.Itoa(r.AmbienceScore), strconv.Itoa(r.PriceScore),
		strconv.Itoa(r.HygieneScore), strconv.Itoa(r.WaitingScore),
		strconv.Itoa(r.AccessibilityScore),
		strconv.Itoa(r.RacismFlag), strconv.Itoa(r.CashOnlyFlag),
		r.Comment,
		strconv.FormatBool(r.LabelValid),
	}
}
