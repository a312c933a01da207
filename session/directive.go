package session

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopKeywords terminate the running session instead of starting one.
var DefaultStopKeywords = []string{"stop", "cancel", "/stop", "중단", "중지", "정지", "멈춰", "취소"}

// DefaultResetTokens, as the first token of a message, start a fresh context.
var DefaultResetTokens = []string{"-clear", "-c"}

// foldKeyword normalizes text for keyword comparison: trimmed, NFC-composed
// (so Hangul typed as jamo still matches) and case-folded.
func foldKeyword(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

type stopSet map[string]struct{}

func newStopSet(keywords []string) stopSet {
	set := make(stopSet, len(keywords))
	for _, k := range keywords {
		if k = foldKeyword(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// matches reports whether the whole message is a stop keyword.
func (s stopSet) matches(text string) bool {
	_, ok := s[foldKeyword(text)]
	return ok
}

// directive is a parsed user message.
type directive struct {
	prompt string
	fresh  bool
}

// parseDirective strips a leading reset token. Only a whole first token
// counts: "-clear hello" resets, "-clearly" does not.
func parseDirective(text string, resetTokens []string) directive {
	text = strings.TrimSpace(text)

	first := text
	rest := ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		first, rest = text[:i], text[i:]
	}

	for _, tok := range resetTokens {
		if tok != "" && first == tok {
			return directive{prompt: strings.TrimSpace(rest), fresh: true}
		}
	}
	return directive{prompt: text}
}
