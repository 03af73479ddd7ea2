package preprocess

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/junhyuk-choi/labelpipe/internal/dataset"
)

// rawRestaurant is one scraped restaurant file: place metadata plus its
// reviews.
type rawRestaurant struct {
	Name        string      `json:"name"`
	PlaceID     string      `json:"place_id"`
	Grid        string      `json:"grid"`
	Address     string      `json:"address"`
	Rating      float64     `json:"rating"`
	PhoneNumber string      `json:"phone_number"`
	Reviews     []rawReview `json:"reviews"`
}

type rawReview struct {
	ReviewID string  `json:"review_id"`
	Text     string  `json:"text"`
	Date     string  `json:"date"`
	Language string  `json:"language"`
	Rating   float64 `json:"rating"`
}

// Stats counts what the preprocessing pass kept and why it dropped the rest.
type Stats struct {
	Files                   int `json:"files"`
	Processed               int `json:"processed"`
	FilteredNoReviewID      int `json:"filtered_no_review_id"`
	FilteredDuplicate       int `json:"filtered_duplicate"`
	FilteredEmptyText       int `json:"filtered_empty_text"`
	FilteredTooShort        int `json:"filtered_too_short"`
	FilteredShortAfterClean int `json:"filtered_too_short_after_cleaning"`
	MinTextLength           int `json:"min_text_length"`
}

// Preprocessor filters, cleans and normalizes raw reviews into dataset rows.
type Preprocessor struct {
	MinTextLength int
	Dates         DateParser

	seen  map[string]struct{}
	stats Stats
}

// NewPreprocessor creates a preprocessor. Relative dates resolve against
// base; a zero base means now.
func NewPreprocessor(minTextLength int, base time.Time) *Preprocessor {
	if base.IsZero() {
		base = time.Now()
	}
	return &Preprocessor{
		MinTextLength: minTextLength,
		Dates:         DateParser{Base: base},
		seen:          make(map[string]struct{}),
		stats:         Stats{MinTextLength: minTextLength},
	}
}

// Stats returns the counters accumulated so far.
func (p *Preprocessor) Stats() Stats {
	return p.stats
}

// ProcessDir reads every *.json restaurant file under dir (sorted, for a
// deterministic output order) and returns the merged clean rows.
func (p *Preprocessor) ProcessDir(dir string) ([]dataset.Review, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no .json files in %s", dir)
	}
	sort.Strings(entries)

	var out []dataset.Review
	for _, path := range entries {
		rows, err := p.ProcessFile(path)
		if err != nil {
			slog.Warn("skipping unreadable restaurant file", "file", path, "error", err)
			continue
		}
		out = append(out, rows...)
	}
	return out, nil
}

// ProcessFile processes one restaurant file.
func (p *Preprocessor) ProcessFile(path string) ([]dataset.Review, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var restaurant rawRestaurant
	if err := json.Unmarshal(data, &restaurant); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p.stats.Files++
	rows := make([]dataset.Review, 0, len(restaurant.Reviews))
	for _, raw := range restaurant.Reviews {
		row, ok := p.processReview(raw, restaurant)
		if ok {
			rows = append(rows, row)
		}
	}

	slog.Debug("restaurant processed", "file", filepath.Base(path), "kept", len(rows), "total", len(restaurant.Reviews))
	return rows, nil
}

// processReview applies filtering and cleaning to a single review.
func (p *Preprocessor) processReview(raw rawReview, restaurant rawRestaurant) (dataset.Review, bool) {
	if strings.TrimSpace(raw.ReviewID) == "" {
		p.stats.FilteredNoReviewID++
		return dataset.Review{}, false
	}
	if _, dup := p.seen[raw.ReviewID]; dup {
		p.stats.FilteredDuplicate++
		return dataset.Review{}, false
	}
	if strings.TrimSpace(raw.Text) == "" {
		p.stats.FilteredEmptyText++
		return dataset.Review{}, false
	}
	if utf8.RuneCountInString(strings.TrimSpace(raw.Text)) < p.MinTextLength {
		p.stats.FilteredTooShort++
		return dataset.Review{}, false
	}

	cleaned := CleanText(ConvertEmoji(raw.Text))
	if utf8.RuneCountInString(cleaned) < p.MinTextLength {
		p.stats.FilteredShortAfterClean++
		return dataset.Review{}, false
	}

	p.seen[raw.ReviewID] = struct{}{}

	date := p.Dates.Parse(raw.Date)
	language := raw.Language
	if language == "" {
		language = "unknown"
	}

	p.stats.Processed++
	return dataset.Review{
		ReviewID:     raw.ReviewID,
		OriginalText: raw.Text,
		CleanedText:  cleaned,
		Date:         date,
		DateValid:    IsValid(date),
		Language:     language,
		Rating:       raw.Rating,

		RestaurantName:    restaurant.Name,
		RestaurantPlaceID: restaurant.PlaceID,
		RestaurantGrid:    restaurant.Grid,
		RestaurantAddress: restaurant.Address,
		RestaurantRating:  restaurant.Rating,
		RestaurantPhone:   restaurant.PhoneNumber,

		CharCount: int32(utf8.RuneCountInString(cleaned)),
		WordCount: int32(len(strings.Fields(cleaned))),
	}, true
}

// WriteStats writes the filter counters beside the output for later review.
func WriteStats(path string, stats Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create stats dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}
