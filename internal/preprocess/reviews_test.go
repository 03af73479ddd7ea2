package preprocess

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func writeRestaurantFile(t *testing.T, dir, name string, r rawRestaurant) {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func longText(prefix string) string {
	return prefix + " 음식이 맛있고 분위기도 좋았습니다 재방문 의사 있어요"
}

func TestProcessFileFiltersAndCleans(t *testing.T) {
	dir := t.TempDir()
	writeRestaurantFile(t, dir, "r1.json", rawRestaurant{
		Name:        "한강 피자",
		PlaceID:     "p1",
		Grid:        "g12",
		Address:     "서울 어딘가",
		Rating:      4.3,
		PhoneNumber: "02-1234-5678",
		Reviews: []rawReview{
			{ReviewID: "a", Text: longText("🍕 최고!"), Date: "3일 전", Language: "ko", Rating: 5},
			{ReviewID: "", Text: longText("no id")},
			{ReviewID: "b", Text: "   "},
			{ReviewID: "c", Text: "짧음"},
			{ReviewID: "a", Text: longText("duplicate")},
		},
	})

	p := NewPreprocessor(10, testBase)
	rows, err := p.ProcessFile(filepath.Join(dir, "r1.json"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "a", row.ReviewID)
	assert.Contains(t, row.CleanedText, "[EMOJI_pizza]")
	assert.NotContains(t, row.CleanedText, "🍕")
	assert.Equal(t, "2024.03.12", row.Date)
	assert.True(t, row.DateValid)
	assert.Equal(t, "ko", row.Language)
	assert.Equal(t, "한강 피자", row.RestaurantName)
	assert.Equal(t, "p1", row.RestaurantPlaceID)
	assert.Equal(t, 4.3, row.RestaurantRating)
	assert.Positive(t, row.CharCount)
	assert.Positive(t, row.WordCount)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.FilteredNoReviewID)
	assert.Equal(t, 1, stats.FilteredEmptyText)
	assert.Equal(t, 1, stats.FilteredTooShort)
	assert.Equal(t, 1, stats.FilteredDuplicate)
}

func TestProcessReviewDefaultsLanguage(t *testing.T) {
	dir := t.TempDir()
	writeRestaurantFile(t, dir, "r1.json", rawRestaurant{
		Name: "x",
		Reviews: []rawReview{
			{ReviewID: "a", Text: longText("괜찮아요"), Date: "어제"},
		},
	})

	p := NewPreprocessor(5, testBase)
	rows, err := p.ProcessFile(filepath.Join(dir, "r1.json"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "unknown", rows[0].Language)
	assert.False(t, rows[0].DateValid)
}

func TestProcessDirMergesAndDeduplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeRestaurantFile(t, dir, "b.json", rawRestaurant{
		Name:    "두번째",
		Reviews: []rawReview{{ReviewID: "shared", Text: longText("다시")}},
	})
	writeRestaurantFile(t, dir, "a.json", rawRestaurant{
		Name: "첫번째",
		Reviews: []rawReview{
			{ReviewID: "shared", Text: longText("처음")},
			{ReviewID: "only-a", Text: longText("하나 더")},
		},
	})

	p := NewPreprocessor(5, testBase)
	rows, err := p.ProcessDir(dir)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Files process in name order, so a.json claims the shared id.
	assert.Equal(t, "첫번째", rows[0].RestaurantName)
	assert.Equal(t, "shared", rows[0].ReviewID)
	assert.Equal(t, "only-a", rows[1].ReviewID)
	assert.Equal(t, 1, p.Stats().FilteredDuplicate)
	assert.Equal(t, 2, p.Stats().Files)
}

func TestProcessDirSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))
	writeRestaurantFile(t, dir, "good.json", rawRestaurant{
		Name:    "ok",
		Reviews: []rawReview{{ReviewID: "a", Text: longText("좋아요")}},
	})

	p := NewPreprocessor(5, testBase)
	rows, err := p.ProcessDir(dir)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestProcessDirEmpty(t *testing.T) {
	p := NewPreprocessor(5, testBase)
	_, err := p.ProcessDir(t.TempDir())
	require.Error(t, err)
}

func TestWriteStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "reviews_stats.json")
	require.NoError(t, WriteStats(path, Stats{Files: 2, Processed: 40, MinTextLength: 20}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Stats
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got.Files)
	assert.Equal(t, 40, got.Processed)
	assert.Equal(t, 20, got.MinTextLength)
}
