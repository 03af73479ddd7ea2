// Package preprocess turns raw scraped restaurant reviews into the clean
// table the labeling pipeline consumes.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlPattern   = regexp.MustCompile(`http[s]?://[^\s<>"']+`)
	htmlPattern  = regexp.MustCompile(`<[^>]+>`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Korean then US phone formats.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b0\d{1,2}-\d{3,4}-\d{4}\b`),
		regexp.MustCompile(`\b0\d{9,10}\b`),
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}-\d{4}`),
		regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`),
	}

	multiSpace   = regexp.MustCompile(` +`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// emojiTags maps the food and drink emoji that carry sentiment signal to
// readable tags. Anything else in the emoji blocks becomes [EMOJI_unknown].
var emojiTags = map[rune]string{
	'🍕': "pizza", '🍔': "hamburger", '🍜': "ramen", '🍣': "sushi",
	'🍰': "cake", '🍦': "soft_ice_cream", '☕': "coffee", '🍵': "tea",
	'🍺': "beer", '🍻': "beers", '🍷': "wine", '🥂': "champagne_glass",
}

// ConvertEmoji rewrites emoji as [EMOJI_name] tags so the text stays plain
// while the signal survives. Letters of any script pass through untouched.
func ConvertEmoji(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if name, ok := emojiTags[r]; ok {
			b.WriteString("[EMOJI_" + name + "]")
			continue
		}
		if isEmoji(r) {
			b.WriteString("[EMOJI_unknown]")
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isEmoji reports whether the rune sits in one of the emoji blocks. Hangul,
// Latin and other scripts are explicitly not emoji.
func isEmoji(r rune) bool {
	switch {
	case r < 0x2190: // ASCII, Latin extensions, Hangul jamo etc.
		return false
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols and pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	default:
		return false
	}
}

// RemoveURLs strips http/https URLs.
func RemoveURLs(text string) string {
	return urlPattern.ReplaceAllString(text, "")
}

// RemoveHTMLTags strips markup left over from scraping.
func RemoveHTMLTags(text string) string {
	return htmlPattern.ReplaceAllString(text, "")
}

// RemoveControlCharacters drops control runes except tab and newlines.
func RemoveControlCharacters(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

// MaskPhoneNumbers replaces phone numbers with [PHONE].
func MaskPhoneNumbers(text string) string {
	for _, p := range phonePatterns {
		text = p.ReplaceAllString(text, "[PHONE]")
	}
	return text
}

// MaskEmails replaces email addresses with [EMAIL].
func MaskEmails(text string) string {
	return emailPattern.ReplaceAllString(text, "[EMAIL]")
}

// NormalizeWhitespace collapses runs of spaces, caps blank lines at one and
// trims every line.
func NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CleanText runs the full cleaning sequence on one review text.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = RemoveURLs(text)
	text = RemoveHTMLTags(text)
	text = RemoveControlCharacters(text)
	text = MaskPhoneNumbers(text)
	text = MaskEmails(text)
	return NormalizeWhitespace(text)
}
