package streamjson

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"log/slog"
)

const (
	// DefaultMaxLineBytes bounds a single buffered line (10MB, the same
	// ceiling the CLI wrappers use for their scanners).
	DefaultMaxLineBytes = 10 * 1024 * 1024

	readChunkSize = 32 * 1024
	previewBytes  = 200
)

// Decoder incrementally turns a byte stream into newline-delimited records.
//
// It holds only the trailing bytes of an incomplete line between calls. Empty
// and whitespace-only lines are dropped. A line that fails to parse is logged
// and skipped so one bad line never aborts the stream.
//
// A Decoder is not safe for concurrent use; feed one stream from one goroutine.
type Decoder struct {
	pending    []byte
	discarding bool
	maxLine    int
	logger     *slog.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for malformed-line diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMaxLineBytes caps how many bytes of a single line are buffered. Lines
// longer than this are dropped whole.
func WithMaxLineBytes(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxLine = n
		}
	}
}

// NewDecoder creates a decoder for one logical stream.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		maxLine: DefaultMaxLineBytes,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Lines appends chunk to the carry-over buffer and returns every complete,
// non-blank line it now contains, in order. The trailing incomplete segment
// stays buffered for the next call.
func (d *Decoder) Lines(chunk []byte) []string {
	var lines []string

	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			d.buffer(chunk)
			break
		}

		if d.discarding {
			d.discarding = false
		} else {
			d.buffer(chunk[:i])
			if !d.discarding {
				if line := bytes.TrimSpace(d.pending); len(line) > 0 {
					lines = append(lines, string(line))
				}
			}
			d.discarding = false
		}
		d.pending = d.pending[:0]
		chunk = chunk[i+1:]
	}

	return lines
}

// buffer appends to the pending line, switching to discard mode when the line
// outgrows maxLine.
func (d *Decoder) buffer(p []byte) {
	if d.discarding {
		return
	}
	if len(d.pending)+len(p) > d.maxLine {
		d.logger.Warn("dropping oversized stream line", "limit_bytes", d.maxLine)
		d.pending = d.pending[:0]
		d.discarding = true
		return
	}
	d.pending = append(d.pending, p...)
}

// Feed decodes every complete line in chunk (plus any carried-over prefix).
func (d *Decoder) Feed(chunk []byte) []Record {
	return d.parse(d.Lines(chunk))
}

// Flush decodes the buffered partial line, if any, and empties the buffer.
// Call it once the underlying stream has ended.
func (d *Decoder) Flush() []Record {
	var lines []string
	if !d.discarding {
		if line := bytes.TrimSpace(d.pending); len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	d.pending = d.pending[:0]
	d.discarding = false
	return d.parse(lines)
}

// Buffered returns the number of bytes held for an incomplete line.
func (d *Decoder) Buffered() int {
	return len(d.pending)
}

func (d *Decoder) parse(lines []string) []Record {
	if len(lines) == 0 {
		return nil
	}
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, err := ParseRecord([]byte(line))
		if err != nil {
			d.logger.Debug("failed to parse stream event", "error", err, "line", preview(line))
			continue
		}
		records = append(records, *rec)
	}
	return records
}

// Stream reads r to EOF and yields records lazily as lines complete. A final
// line without a trailing newline is decoded at EOF. A read error other than
// EOF is yielded once, after which the sequence ends.
func (d *Decoder) Stream(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		buf := make([]byte, readChunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, rec := range d.Feed(buf[:n]) {
					if !yield(rec, nil) {
						return
					}
				}
			}
			if err == nil {
				continue
			}

			for _, rec := range d.Flush() {
				if !yield(rec, nil) {
					return
				}
			}
			if !errors.Is(err, io.EOF) {
				yield(Record{}, err)
			}
			return
		}
	}
}

func preview(s string) string {
	if len(s) <= previewBytes {
		return s
	}
	return s[:previewBytes] + "..."
}
