package slackbot

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageRunes is the longest chunk posted as one Slack message. Slack
// truncates text beyond 4000 characters in most clients.
const MaxMessageRunes = 3900

// splitMessage cuts text into chunks of at most limit runes, preferring line
// boundaries. A single line longer than limit is cut mid-line.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			chunks = append(chunks, text[:nl])
			text = text[nl+1:]
			continue
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// byteOffset returns the byte index of the n-th rune.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
