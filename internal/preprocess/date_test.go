package preprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateParserRelative(t *testing.T) {
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	p := DateParser{Base: base}

	tests := []struct {
		in, want string
	}{
		{"3시간 전", "2024.03.15"},
		{"3일 전", "2024.03.12"},
		{"1주 전", "2024.03.08"},
		{"2주전", "2024.03.01"},
		{"1달 전", "2024.02.14"},
		{"2개월 전", "2024.01.15"},
		{"1년 전", "2023.03.16"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Parse(tt.in), "input: %s", tt.in)
	}
}

func TestDateParserAbsolute(t *testing.T) {
	p := DateParser{Base: time.Now()}

	assert.Equal(t, "2023.11.05", p.Parse("2023.11.05"))
	assert.Equal(t, "2023.11.05", p.Parse("2023-11-5"))
	assert.Equal(t, "2023.01.09", p.Parse("2023/1/9"))
	assert.Equal(t, "2023.11.05", p.Parse("수정일: 2023.11.05"))
}

func TestDateParserPassesThroughUnknown(t *testing.T) {
	p := DateParser{Base: time.Now()}

	assert.Equal(t, "어제", p.Parse("어제"))
	assert.Equal(t, "", p.Parse("  "))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("2024.03.15"))
	assert.False(t, IsValid("어제"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("2024-03-15"))
}
