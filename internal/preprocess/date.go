package preprocess

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateParser resolves the relative dates the review site shows ("3일 전")
// against a fixed base date, so reruns over the same scrape stay stable.
type DateParser struct {
	Base time.Time
}

var relativePatterns = []struct {
	re    *regexp.Regexp
	delta func(n int) time.Duration
}{
	{regexp.MustCompile(`(\d+)시간\s*전`), func(n int) time.Duration { return time.Duration(n) * time.Hour }},
	{regexp.MustCompile(`(\d+)일\s*전`), func(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }},
	{regexp.MustCompile(`(\d+)주\s*전`), func(n int) time.Duration { return time.Duration(n) * 7 * 24 * time.Hour }},
	{regexp.MustCompile(`(\d+)달\s*전`), func(n int) time.Duration { return time.Duration(n) * 30 * 24 * time.Hour }},
	{regexp.MustCompile(`(\d+)개월\s*전`), func(n int) time.Duration { return time.Duration(n) * 30 * 24 * time.Hour }},
	{regexp.MustCompile(`(\d+)년\s*전`), func(n int) time.Duration { return time.Duration(n) * 365 * 24 * time.Hour }},
}

var absolutePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`),
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
	regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
}

var validDate = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}`)

// Parse converts a raw date string to YYYY.MM.DD. Unparseable input is
// returned as-is; IsValid tells the two apart.
func (p DateParser) Parse(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "수정일:", ""))
	if s == "" {
		return ""
	}

	for _, rp := range relativePatterns {
		m := rp.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return p.Base.Add(-rp.delta(n)).Format("2006.01.02")
	}

	for _, ap := range absolutePatterns {
		m := ap.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%04d.%02d.%02d", year, month, day)
	}

	return s
}

// IsValid reports whether a parsed date is in the standard form.
func IsValid(date string) bool {
	return validDate.MatchString(date)
}
