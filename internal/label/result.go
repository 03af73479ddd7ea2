// Package label defines the per-review annotation schema and validates raw
// model output against it.
package label

import "fmt"

// Score bounds for aspect scores and binary flags.
const (
	ScoreMin = -2
	ScoreMax = 2
)

// Result holds the aspect-based sentiment annotation for one review.
// Valid is false when the model output for the review was missing or
// malformed and the zero-valued fallback was substituted instead.
type Result struct {
	FoodScore          int    `json:"food_score" parquet:"food_score"`
	ServiceScore       int    `json:"service_score" parquet:"service_score"`
	AmbienceScore      int    `json:"ambience_score" parquet:"ambience_score"`
	PriceScore         int    `json:"price_score" parquet:"price_score"`
	HygieneScore       int    `json:"hygiene_score" parquet:"hygiene_score"`
	WaitingScore       int    `json:"waiting_score" parquet:"waiting_score"`
	AccessibilityScore int    `json:"accessibility_score" parquet:"accessibility_score"`
	RacismFlag         int    `json:"racism_flag" parquet:"racism_flag"`
	CashOnlyFlag       int    `json:"cash_only_flag" parquet:"cash_only_flag"`
	Comment            string `json:"comment" parquet:"comment"`
	Valid              bool   `json:"valid" parquet:"label_valid"`
}

// Fallback returns the sentinel result substituted when a review could not
// be annotated. All scores and flags are zero; the comment records why.
func Fallback(diag string) Result {
	return Result{
		Comment: fmt.Sprintf("annotation unavailable: %s", diag),
		Valid:   false,
	}
}

// scores returns the seven aspect scores for range checking.
func (r Result) scores() [7]int {
	return [7]int{
		r.FoodScore, r.ServiceScore, r.AmbienceScore, r.PriceScore,
		r.HygieneScore, r.WaitingScore, r.AccessibilityScore,
	}
}

// check verifies score and flag ranges.
func (r Result) check() error {
	for _, s := range r.scores() {
		if s < ScoreMin || s > ScoreMax {
			return fmt.Errorf("score %d outside [%d,%d]", s, ScoreMin, ScoreMax)
		}
	}
	for _, f := range [2]int{r.RacismFlag, r.CashOnlyFlag} {
		if f != 0 && f != 1 {
			return fmt.Errorf("flag %d outside {0,1}", f)
		}
	}
	return nil
}
