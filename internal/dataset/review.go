// Package dataset reads and writes the review tables the pipeline operates
// on: parquet for the columnar representations, CSV for the flat copy.
package dataset

import (
	"fmt"

	"github.com/junhyuk-choi/labelpipe/internal/label"
)

// Review is one preprocessed restaurant review row. The column set matches
// the preprocessing stage output.
type Review struct {
	ReviewID     string `parquet:"review_id" json:"review_id"`
	OriginalText string `parquet:"original_text" json:"original_text"`
	CleanedText  string `parquet:"cleaned_text" json:"cleaned_text"`
	Date         string `parquet:"date" json:"date"`
	DateValid    bool   `parquet:"date_valid" json:"date_valid"`
	Language     string `parquet:"language" json:"language"`
	Rating       float64 `parquet:"rating" json:"rating"`

	RestaurantName    string  `parquet:"restaurant_name" json:"restaurant_name"`
	RestaurantPlaceID string  `parquet:"restaurant_place_id" json:"restaurant_place_id"`
	RestaurantGrid    string  `parquet:"restaurant_grid" json:"restaurant_grid"`
	RestaurantAddress string  `parquet:"restaurant_address" json:"restaurant_address"`
	RestaurantRating  float64 `parquet:"restaurant_rating" json:"restaurant_rating"`
	RestaurantPhone   string  `parquet:"restaurant_phone" json:"restaurant_phone"`

	CharCount int32 `parquet:"char_count" json:"char_count"`
	WordCount int32 `parquet:"word_count" json:"word_count"`
}

// Text columns a labeling run may read.
const (
	ColumnCleanedText  = "cleaned_text"
	ColumnOriginalText = "original_text"
)

// Text returns the review text for the given column name.
func (r Review) Text(column string) (string, error) {
	switch column {
	case ColumnCleanedText:
		return r.CleanedText, nil
	case ColumnOriginalText:
		return r.OriginalText, nil
	default:
		return "", fmt.Errorf("unknown text column: %s", column)
	}
}

// LabeledReview is a review row joined with its annotation. Fields are
// spelled out rather than embedded so the parquet and CSV schemas stay flat.
type LabeledReview struct {
	ReviewID     string  `parquet:"review_id"`
	OriginalText string  `parquet:"original_text"`
	CleanedText  string  `parquet:"cleaned_text"`
	Date         string  `parquet:"date"`
	DateValid    bool    `parquet:"date_valid"`
	Language     string  `parquet:"language"`
	Rating       float64 `parquet:"rating"`

	RestaurantName    string  `parquet:"restaurant_name"`
	RestaurantPlaceID string  `parquet:"restaurant_place_id"`
	RestaurantGrid    string  `parquet:"restaurant_grid"`
	RestaurantAddress string  `parquet:"restaurant_address"`
	RestaurantRating  float64 `parquet:"restaurant_rating"`
	RestaurantPhone   string  `parquet:"restaurant_phone"`

	CharCount int32 `parquet:"char_count"`
	WordCount int32 `parquet:"word_count"`

	FoodScore          int    `parquet:"food_score"`
	ServiceScore       int    `parquet:"service_score"`
	AmbienceScore      int    `parquet:"ambience_score"`
	PriceScore         int    `parquet:"price_score"`
	HygieneScore       int    `parquet:"hygiene_score"`
	WaitingScore       int    `parquet:"waiting_score"`
	AccessibilityScore int    `parquet:"accessibility_score"`
	RacismFlag         int    `parquet:"racism_flag"`
	CashOnlyFlag       int    `parquet:"cash_only_flag"`
	Comment            string `parquet:"comment"`
	LabelValid         bool   `parquet:"label_valid"`
}

// Join merges a review with its annotation into one output row.
func Join(r Review, l label.Result) LabeledReview {
	return LabeledReview{
		ReviewID:          r.ReviewID,
		OriginalText:      r.OriginalText,
		CleanedText:       r.CleanedText,
		Date:              r.Date,
		DateValid:         r.DateValid,
		Language:          r.Language,
		Rating:            r.Rating,
		RestaurantName:    r.RestaurantName,
		RestaurantPlaceID: r.RestaurantPlaceID,
		RestaurantGrid:    r.RestaurantGrid,
		RestaurantAddress: r.RestaurantAddress,
		RestaurantRating:  r.RestaurantRating,
		RestaurantPhone:   r.RestaurantPhone,
		CharCount:         r.CharCount,
		WordCount:         r.WordCount,

		FoodScore:          l.FoodScore,
		ServiceScore:       l.ServiceScore,
		AmbienceScore:      l.AmbienceScore,
		PriceScore:         l.PriceScore,
		HygieneScore:       l.HygieneScore,
		WaitingScore:       l.WaitingScore,
		AccessibilityScore: l.AccessibilityScore,
		RacismFlag:         l.RacismFlag,
		CashOnlyFlag:       l.CashOnlyFlag,
		Comment:            l.Comment,
		LabelValid:         l.Valid,
	}
}
