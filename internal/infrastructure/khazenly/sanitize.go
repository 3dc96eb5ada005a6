package khazenly

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// variantSuffixPattern matches a trailing parenthesised variant annotation,
// e.g. " (Size: L, Color: Blue)". Strict sanitization drops it entirely.
var variantSuffixPattern = regexp.MustCompile(`\s*\([^)]*\)`)

// whitespacePattern collapses any run of whitespace to a single space
var whitespacePattern = regexp.MustCompile(`\s+`)

// Sanitize normalizes free-text input for the Khazenly payload: NFC
// normalization, control characters stripped, whitespace collapsed, and all
// runes outside the allow-list removed. The normal allow-list accepts Arabic
// and Latin letters, ASCII and Arabic-Indic digits and basic punctuation.
// Strict mode narrows to Latin letters, ASCII digits, space and ".,-" and
// drops parenthesised variant suffixes; it exists for payload retries after
// the provider rejects the customer data.
func Sanitize(s string, strict bool) string {
	s = norm.NFC.String(s)

	if strict {
		s = variantSuffixPattern.ReplaceAllString(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// dropped
		case allowedRune(r, strict):
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
}

// allowedRune reports whether a rune survives sanitization
func allowedRune(r rune, strict bool) bool {
	if strict {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == ' ' || r == '.' || r == ',' || r == '-'
	}
	switch {
	case r == ' ':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 0x0660 && r <= 0x0669: // Arabic-Indic digits
		return true
	case unicode.Is(unicode.Latin, r), unicode.Is(unicode.Arabic, r):
		return unicode.IsLetter(r) || unicode.IsMark(r)
	}
	switch r {
	case '.', ',', '-', '(', ')', '/', '&', '\'', ':', '#':
		return true
	}
	return false
}

// TruncateWords shortens s to at most max runes, cutting at the last word
// boundary that fits. Falls back to a hard cut when the first word alone
// exceeds the limit.
func TruncateWords(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	// Only backtrack when the cut lands mid-word
	if runes[max] != ' ' {
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
	}
	return strings.TrimRight(cut, " ,-")
}

// NormalizePhone canonicalizes an Egyptian mobile number to the local
// 11-digit form (e.g. "01012345678"). Accepts "+20", "0020" and bare "20"
// country prefixes and separator characters. Returns ok=false for anything
// that is not a valid Egyptian mobile number.
func NormalizePhone(raw string) (string, bool) {
	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 0x0660 && r <= 0x0669:
			digits.WriteRune('0' + (r - 0x0660))
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
			// separators and the plus sign are dropped
		default:
			return "", false
		}
	}
	n := digits.String()

	// Strip the country prefix. "0020..." before "20..." so the longer form
	// is not half-consumed.
	switch {
	case strings.HasPrefix(n, "0020"):
		n = n[4:]
	case strings.HasPrefix(n, "20") && len(n) >= 12:
		n = n[2:]
	}

	// Restore the dropped trunk zero after a country prefix
	if len(n) == 10 && !strings.HasPrefix(n, "0") {
		n = "0" + n
	}

	if len(n) != 11 {
		return "", false
	}
	switch n[:3] {
	case "010", "011", "012", "015":
		return n, true
	}
	return "", false
}
