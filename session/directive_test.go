package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestStopSet_Matches(t *testing.T) {
	stops := newStopSet(DefaultStopKeywords)

	tests := []struct {
		text string
		want bool
	}{
		{"stop", true},
		{"STOP", true},
		{"  Stop\n", true},
		{"/stop", true},
		{"cancel", true},
		{"중단", true},
		{"멈춰", true},
		{norm.NFD.String("취소"), true},
		{"stop it", false},
		{"please stop", false},
		{"stopped", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, stops.matches(tt.text))
		})
	}
}

func TestStopSet_CustomKeywords(t *testing.T) {
	stops := newStopSet([]string{" Halt ", ""})

	assert.True(t, stops.matches("halt"))
	assert.False(t, stops.matches("stop"))
	assert.False(t, stops.matches(""))
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name string
		text string
		want directive
	}{
		{"plain", "hello", directive{prompt: "hello"}},
		{"trimmed", "\t hello world \n", directive{prompt: "hello world"}},
		{"clear", "-clear hello", directive{prompt: "hello", fresh: true}},
		{"short", "-c hello", directive{prompt: "hello", fresh: true}},
		{"newline after token", "-clear\nline one\nline two", directive{prompt: "line one\nline two", fresh: true}},
		{"leading space", "  -clear hello", directive{prompt: "hello", fresh: true}},
		{"token only", "-clear", directive{fresh: true}},
		{"prefix is not a token", "-clearly", directive{prompt: "-clearly"}},
		{"token later in text", "hello -clear", directive{prompt: "hello -clear"}},
		{"case sensitive", "-CLEAR hello", directive{prompt: "-CLEAR hello"}},
		{"empty", "", directive{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDirective(tt.text, DefaultResetTokens))
		})
	}
}

func TestParseDirective_NoTokens(t *testing.T) {
	assert.Equal(t, directive{prompt: "-clear hello"}, parseDirective("-clear hello", nil))
}
