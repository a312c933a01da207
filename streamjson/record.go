package streamjson

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/randalmurphal/claudebridge/claudecontract"
)

// Kind identifies which variant of a Record is populated.
type Kind string

const (
	// KindInit is the system/init record emitted when the CLI session starts.
	KindInit Kind = "init"

	// KindAssistant carries assistant content blocks (text and tool invocations).
	KindAssistant Kind = "assistant"

	// KindResult is the terminal record; check Result.IsSuccess.
	KindResult Kind = "result"

	// KindUnrecognized covers well-formed lines of any other shape
	// (user tool results, hook responses, future event types).
	KindUnrecognized Kind = "unrecognized"
)

// Record is one decoded stream-json line. Exactly one of Init, Assistant or
// Result is set, matching Kind; none is set for KindUnrecognized.
type Record struct {
	Kind      Kind
	Type      string
	Subtype   string
	SessionID string

	Init      *InitRecord
	Assistant *AssistantRecord
	Result    *ResultRecord

	// Raw is the original line.
	Raw json.RawMessage
}

// InitRecord is the payload of {"type":"system","subtype":"init"}.
type InitRecord struct {
	SessionID      string   `json:"session_id"`
	Model          string   `json:"model"`
	CWD            string   `json:"cwd"`
	PermissionMode string   `json:"permissionMode"`
	Tools          []string `json:"tools"`
}

// AssistantRecord is the payload of {"type":"assistant"}.
type AssistantRecord struct {
	MessageID string         `json:"id"`
	Model     string         `json:"model"`
	Content   []ContentBlock `json:"content"`
}

// ContentBlock is one element of an assistant message's content array.
type ContentBlock struct {
	Type  string          `json:"type"` // "text", "tool_use", "thinking", ...
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`    // tool_use
	Name  string          `json:"name,omitempty"`  // tool_use
	Input json.RawMessage `json:"input,omitempty"` // tool_use
}

// IsText reports whether the block is a text block.
func (b ContentBlock) IsText() bool { return b.Type == claudecontract.ContentTypeText }

// IsToolUse reports whether the block is a tool invocation.
func (b ContentBlock) IsToolUse() bool { return b.Type == claudecontract.ContentTypeToolUse }

// Text concatenates the text blocks of the message.
func (a *AssistantRecord) Text() string {
	var sb strings.Builder
	for _, b := range a.Content {
		if b.IsText() {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ResultRecord is the payload of {"type":"result"}.
type ResultRecord struct {
	Subtype      string  `json:"subtype"`
	IsError      bool    `json:"is_error"`
	Result       string  `json:"result"`
	SessionID    string  `json:"session_id"`
	DurationMS   int     `json:"duration_ms"`
	NumTurns     int     `json:"num_turns"`
	TotalCostUSD float64 `json:"total_cost_usd"`

	// Error is usually a JSON string but is kept raw because some CLI
	// versions report an object. Use ErrorText.
	Error json.RawMessage `json:"error,omitempty"`
}

// IsSuccess reports whether the run finished successfully.
func (r *ResultRecord) IsSuccess() bool {
	return r.Subtype == claudecontract.ResultSubtypeSuccess && !r.IsError
}

// ErrorText returns the error carried by a failed result: the "error" field if
// present, otherwise the "result" text. It returns "" when neither is set.
func (r *ResultRecord) ErrorText() string {
	if len(r.Error) > 0 && !bytes.Equal(r.Error, []byte("null")) {
		var s string
		if err := json.Unmarshal(r.Error, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, r.Error); err == nil {
			return buf.String()
		}
		return string(r.Error)
	}
	return strings.TrimSpace(r.Result)
}

// ParseRecord decodes one stream-json line. Lines that are valid JSON but of
// an unknown shape decode to KindUnrecognized; only malformed JSON (or a known
// type with a malformed payload) is an error.
func ParseRecord(line []byte) (*Record, error) {
	var base struct {
		Type      string `json:"type"`
		Subtype   string `json:"subtype,omitempty"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(line, &base); err != nil {
		return nil, err
	}

	rec := &Record{
		Kind:      KindUnrecognized,
		Type:      base.Type,
		Subtype:   base.Subtype,
		SessionID: base.SessionID,
		Raw:       append(json.RawMessage(nil), line...),
	}

	switch base.Type {
	case claudecontract.EventTypeSystem:
		if base.Subtype != claudecontract.SubtypeInit {
			break
		}
		rec.Kind = KindInit
		rec.Init = &InitRecord{}
		if err := json.Unmarshal(line, rec.Init); err != nil {
			return nil, err
		}
		if rec.SessionID == "" {
			rec.SessionID = rec.Init.SessionID
		}

	case claudecontract.EventTypeAssistant:
		var wrapper struct {
			Message AssistantRecord `json:"message"`
		}
		if err := json.Unmarshal(line, &wrapper); err != nil {
			return nil, err
		}
		rec.Kind = KindAssistant
		rec.Assistant = &wrapper.Message

	case claudecontract.EventTypeResult:
		rec.Kind = KindResult
		rec.Result = &ResultRecord{}
		if err := json.Unmarshal(line, rec.Result); err != nil {
			return nil, err
		}
	}

	return rec, nil
}
