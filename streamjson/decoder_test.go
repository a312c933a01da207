package streamjson

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	initLine      = `{"type":"system","subtype":"init","session_id":"sess-1","model":"claude-sonnet-4","cwd":"/work"}`
	textLine      = `{"type":"assistant","message":{"id":"msg_1","content":[{"type":"text","text":"hello"}]}}`
	toolLine      = `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"tu_1","name":"Bash","input":{"command":"ls"}}]}}`
	successLine   = `{"type":"result","subtype":"success","result":"hi there","session_id":"sess-1"}`
	malformedLine = `{"type":"assistant","message":`
)

func quietDecoder(opts ...Option) *Decoder {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewDecoder(opts...)
}

func TestDecoder_Lines_CarriesPartialLine(t *testing.T) {
	d := quietDecoder()

	assert.Empty(t, d.Lines([]byte(`{"type":"sys`)))
	assert.Equal(t, len(`{"type":"sys`), d.Buffered())

	lines := d.Lines([]byte(`tem"}` + "\n" + `{"a":1}` + "\n" + `{"b"`))
	assert.Equal(t, []string{`{"type":"system"}`, `{"a":1}`}, lines)
	assert.Equal(t, len(`{"b"`), d.Buffered())
}

func TestDecoder_Lines_DropsBlankLines(t *testing.T) {
	d := quietDecoder()

	lines := d.Lines([]byte("\n   \n{\"a\":1}\r\n\t\n\n{\"b\":2}\n"))
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, lines)
	assert.Zero(t, d.Buffered())
}

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	stream := strings.Join([]string{initLine, textLine, "", "  ", toolLine, successLine}, "\n") + "\n"

	whole := quietDecoder().Lines([]byte(stream))
	require.Len(t, whole, 4)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		d := quietDecoder()
		var got []string
		rest := []byte(stream)
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			got = append(got, d.Lines(rest[:n])...)
			rest = rest[n:]
		}
		require.Equal(t, whole, got, "trial %d", trial)
		require.Zero(t, d.Buffered())
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	stream := initLine + "\n" + textLine + "\n"

	d := quietDecoder()
	var recs []Record
	for i := 0; i < len(stream); i++ {
		recs = append(recs, d.Feed([]byte{stream[i]})...)
	}

	require.Len(t, recs, 2)
	assert.Equal(t, KindInit, recs[0].Kind)
	assert.Equal(t, KindAssistant, recs[1].Kind)
}

func TestDecoder_Feed_SkipsMalformedLine(t *testing.T) {
	d := quietDecoder()

	recs := d.Feed([]byte(textLine + "\n" + malformedLine + "\n" + successLine + "\n"))

	require.Len(t, recs, 2)
	assert.Equal(t, KindAssistant, recs[0].Kind)
	assert.Equal(t, "hello", recs[0].Assistant.Text())
	assert.Equal(t, KindResult, recs[1].Kind)
	assert.True(t, recs[1].Result.IsSuccess())
}

func TestDecoder_Feed_LogsMalformedLine(t *testing.T) {
	var logs bytes.Buffer
	d := NewDecoder(WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	recs := d.Feed([]byte("not json\n"))

	assert.Empty(t, recs)
	assert.Contains(t, logs.String(), "failed to parse stream event")
	assert.Contains(t, logs.String(), "not json")
}

func TestDecoder_Flush(t *testing.T) {
	d := quietDecoder()

	assert.Empty(t, d.Feed([]byte(successLine)))
	recs := d.Flush()

	require.Len(t, recs, 1)
	assert.Equal(t, "hi there", recs[0].Result.Result)
	assert.Zero(t, d.Buffered())
	assert.Empty(t, d.Flush())
}

func TestDecoder_OversizedLineDropped(t *testing.T) {
	d := quietDecoder(WithMaxLineBytes(16))

	lines := d.Lines([]byte(`{"a":"` + strings.Repeat("x", 10)))
	assert.Empty(t, lines)
	lines = d.Lines([]byte(strings.Repeat("y", 10) + `"}` + "\n" + `{"ok":1}` + "\n"))

	assert.Equal(t, []string{`{"ok":1}`}, lines)
	assert.Zero(t, d.Buffered())
}

func TestDecoder_Stream(t *testing.T) {
	input := initLine + "\n" + malformedLine + "\n" + textLine + "\n" + successLine
	r := iotest.OneByteReader(strings.NewReader(input))

	var kinds []Kind
	for rec, err := range quietDecoder().Stream(r) {
		require.NoError(t, err)
		kinds = append(kinds, rec.Kind)
	}

	assert.Equal(t, []Kind{KindInit, KindAssistant, KindResult}, kinds)
}

func TestDecoder_Stream_ReadError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(strings.NewReader(textLine+"\n"), iotest.ErrReader(boom))

	var recs int
	var gotErr error
	for _, err := range quietDecoder().Stream(r) {
		if err != nil {
			gotErr = err
			continue
		}
		recs++
	}

	assert.Equal(t, 1, recs)
	assert.ErrorIs(t, gotErr, boom)
}

func TestDecoder_Stream_EarlyBreak(t *testing.T) {
	input := strings.Repeat(textLine+"\n", 5)

	var n int
	for range quietDecoder().Stream(strings.NewReader(input)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}
