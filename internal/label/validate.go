package label

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// rawItem is the tolerant decode target for one element of the model's JSON
// array. Numeric fields are json.Number so non-integer junk is detected
// rather than silently truncated.
type rawItem struct {
	ID                 *json.Number `json:"id"`
	FoodScore          *json.Number `json:"food_score"`
	ServiceScore       *json.Number `json:"service_score"`
	AmbienceScore      *json.Number `json:"ambience_score"`
	PriceScore         *json.Number `json:"price_score"`
	HygieneScore       *json.Number `json:"hygiene_score"`
	WaitingScore       *json.Number `json:"waiting_score"`
	AccessibilityScore *json.Number `json:"accessibility_score"`
	RacismFlag         *json.Number `json:"racism_flag"`
	CashOnlyFlag       *json.Number `json:"cash_only_flag"`
	Comment            string       `json:"comment"`
}

// Parse turns one batch's raw completion into exactly n results, in input
// order. A review whose output is missing or malformed gets the fallback
// sentinel; content problems never surface as an error, so one bad item
// cannot invalidate its siblings.
func Parse(raw string, n int) []Result {
	results := make([]Result, n)
	for i := range results {
		results[i] = Fallback("no output for review")
	}

	content := StripFences(raw)

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		slog.Warn("batch output is not a JSON array, substituting fallbacks", "error", err, "expected", n)
		diag := fmt.Sprintf("batch output unparseable: %v", err)
		for i := range results {
			results[i] = Fallback(diag)
		}
		return results
	}

	if len(items) != n {
		slog.Warn("batch output length mismatch", "expected", n, "got", len(items))
	}

	// Items claim their slot via the batch-local id; sequential position is
	// the fallback when the model omits ids.
	for pos, itemRaw := range items {
		idx, res, err := parseItem(itemRaw, pos, n)
		if idx < 0 {
			continue
		}
		if err != nil {
			results[idx] = Fallback(err.Error())
			continue
		}
		results[idx] = res
	}

	return results
}

// parseItem decodes one array element. The returned index is -1 when the
// element cannot be attributed to any review in the batch.
func parseItem(raw json.RawMessage, pos, n int) (int, Result, error) {
	var item rawItem
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&item); err != nil {
		if pos < n {
			return pos, Result{}, fmt.Errorf("item not an object: %v", err)
		}
		return -1, Result{}, nil
	}

	idx := pos
	if item.ID != nil {
		if v, err := item.ID.Int64(); err == nil {
			idx = int(v)
		}
	}
	if idx < 0 || idx >= n {
		slog.Warn("dropping item with out-of-range id", "id", idx, "batch_len", n)
		return -1, Result{}, nil
	}

	var res Result
	fields := []struct {
		dst  *int
		src  *json.Number
		name string
	}{
		{&res.FoodScore, item.FoodScore, "food_score"},
		{&res.ServiceScore, item.ServiceScore, "service_score"},
		{&res.AmbienceScore, item.AmbienceScore, "ambience_score"},
		{&res.PriceScore, item.PriceScore, "price_score"},
		{&res.HygieneScore, item.HygieneScore, "hygiene_score"},
		{&res.WaitingScore, item.WaitingScore, "waiting_score"},
		{&res.AccessibilityScore, item.AccessibilityScore, "accessibility_score"},
		{&res.RacismFlag, item.RacismFlag, "racism_flag"},
		{&res.CashOnlyFlag, item.CashOnlyFlag, "cash_only_flag"},
	}
	for _, f := range fields {
		if f.src == nil {
			return idx, Result{}, fmt.Errorf("missing field %s", f.name)
		}
		v, err := f.src.Int64()
		if err != nil {
			return idx, Result{}, fmt.Errorf("field %s is not an integer", f.name)
		}
		*f.dst = int(v)
	}
	res.Comment = item.Comment

	if err := res.check(); err != nil {
		return idx, Result{}, fmt.Errorf("out of range: %v", err)
	}

	res.Valid = true
	return idx, res, nil
}

// StripFences removes a surrounding markdown code fence, which models emit
// despite being told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}
