package message

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nadavsuissa/AiChatManager1/provider"
)

const (
	rtlEmbedding      = "\u202B"
	popDirectionalFmt = "\u202C"
)

var (
	citationMarker = regexp.MustCompile(`[ \t]*【[^】]*】`)
	// the assistant instructions ask for this phrase after every quote
	sourcePhrase = regexp.MustCompile(`[ \t]*\(המידע מופיע במסמך "[^"]*"\)`)

	hebrew = &unicode.RangeTable{
		R16: []unicode.Range16{{Lo: 0x0590, Hi: 0x05FF, Stride: 1}},
	}
)

// Normalize turns raw provider text into display text. An empty result is
// returned as-is.
func Normalize(text string, role provider.Role) string {
	text = stripMarkers(citationMarker, text)
	text = stripMarkers(sourcePhrase, text)
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if role == provider.RoleAssistant && IsHebrew(text) {
		return WrapRTL(text)
	}
	return text
}

// stripMarkers removes every match of re. The whitespace in front of a marker
// goes with it only when whitespace or the end of the text follows, so the
// words around a marker never run together.
func stripMarkers(re *regexp.Regexp, text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if end < len(text) && !isSpace(text[end]) {
			start += len(text[start:end]) - len(strings.TrimLeft(text[start:end], " \t"))
		}
		b.WriteString(text[last:start])
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func IsHebrew(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.Is(hebrew, r)
	}) >= 0
}

func WrapRTL(text string) string {
	return rtlEmbedding + text + popDirectionalFmt
}
