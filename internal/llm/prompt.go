package llm

import (
	"encoding/json"
	"fmt"
)

// SystemPrompt instructs the model to emit aspect-based sentiment labels for
// restaurant reviews as a JSON array, one object per input review.
const SystemPrompt = `Aspect-based sentiment annotator for restaurant reviews.

For each review, assign scores (-2 to +2) and flags (0/1):
- food_score: taste, quality, drinks
- service_score: staff attitude, response speed
- ambience_score: atmosphere, noise, interior
- price_score: value for money
- hygiene_score: cleanliness
- waiting_score: wait time for seating
- accessibility_score: location, parking
- racism_flag: discrimination (1 if present)
- cash_only_flag: cash-only payment (1 if mentioned)
- comment: 1-2 sentence Korean summary

Scoring guide:
+2: very positive (best, amazing, perfect)
+1: positive (good, nice)
0: neutral or not mentioned
-1: negative (disappointing, problematic)
-2: very negative (worst, disgusting, dangerous)

Rules:
- Score 0 if aspect not mentioned
- If mixed sentiment, use stronger absolute value
- Output ONLY a JSON array, same order as input
- Each object: id, all scores, both flags, comment`

type promptItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// BuildUserPrompt renders one batch of texts as the user message. IDs are
// batch-local positions so the response can be re-ordered deterministically.
func BuildUserPrompt(texts []string) (string, error) {
	items := make([]promptItem, len(texts))
	for i, t := range texts {
		items[i] = promptItem{ID: i, Text: t}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal reviews: %w", err)
	}

	return fmt.Sprintf(`Reviews JSON:
%s

Return JSON array with keys: id, food_score, service_score, ambience_score, price_score, hygiene_score, waiting_score, accessibility_score, racism_flag, cash_only_flag, comment`, payload), nil
}
