package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/randalmurphal/claudebridge/claudecontract"
	"github.com/randalmurphal/claudebridge/streamjson"
)

// User-facing texts. The bridge talks to its users in Korean.
const (
	completedText     = "✅ 완료"
	stoppedText       = "🛑 실행 중인 작업을 중단했습니다."
	nothingToStopText = "ℹ️ 실행 중인 작업이 없습니다."
	emptyMessageText  = "메시지가 비어 있습니다."
	unknownErrorText  = "알 수 없는 오류가 발생했습니다."

	maxToolInputRunes = 500
)

// resultSubtypeTexts describe error results that carry no message of their own.
var resultSubtypeTexts = map[string]string{
	claudecontract.ResultSubtypeErrorMaxTurns:        "최대 턴 수에 도달해 실행이 중단되었습니다.",
	claudecontract.ResultSubtypeErrorDuringExecution: "실행 중 오류가 발생했습니다.",
	claudecontract.ResultSubtypeErrorMaxBudgetUSD:    "최대 비용 한도에 도달해 실행이 중단되었습니다.",
}

// resultErrorText is the error shown for a failed result without error text.
// Unlisted error subtypes are named after the generic text.
func resultErrorText(subtype string) string {
	if text, ok := resultSubtypeTexts[subtype]; ok {
		return text
	}
	if subtype != claudecontract.ResultSubtypeError &&
		strings.HasPrefix(subtype, claudecontract.ResultSubtypeErrorPrefix) {
		return fmt.Sprintf("%s (%s)", unknownErrorText, subtype)
	}
	return unknownErrorText
}

func waitingText(elapsed time.Duration) string {
	return fmt.Sprintf("⏳ Claude 응답 대기중... (%d초 경과)", int(elapsed/time.Second))
}

func timeoutText(limit time.Duration) string {
	return fmt.Sprintf("Claude 응답 시간이 %s을 초과했습니다.", koreanDuration(limit))
}

// koreanDuration renders d as "1시간", "1시간 30분", "45초".
func koreanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%d시간", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%d분", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d초", s))
	}
	return strings.Join(parts, " ")
}

func exitText(status ExitStatus, stderr string) string {
	var msg string
	if status.Signal != "" {
		msg = "Process terminated (" + status.Signal + ")"
	} else {
		msg = fmt.Sprintf("Process exited with code %d", status.Code)
	}
	if stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func initText(rec *streamjson.InitRecord) string {
	var sb strings.Builder
	sb.WriteString("🤖 Claude 세션 시작")
	for _, f := range [...]struct{ label, value string }{
		{"session", rec.SessionID},
		{"model", rec.Model},
		{"cwd", rec.CWD},
	} {
		if f.value != "" {
			fmt.Fprintf(&sb, "\n• %s: %s", f.label, f.value)
		}
	}
	return sb.String()
}

func toolUseText(block streamjson.ContentBlock) string {
	text := "🔧 " + block.Name
	if input := compactInput(block.Input); input != "" {
		text += "\n```" + input + "```"
	}
	return text
}

// compactInput renders tool input as one-line JSON, truncated for chat.
func compactInput(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	s := buf.String()
	if s == "null" || s == "{}" {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxToolInputRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxToolInputRunes]) + "..."
}

// completion builds the single success message. The result is only repeated
// when it adds something beyond what was already streamed.
func completion(result string, fragments []string) Message {
	result = strings.TrimSpace(result)
	if result != "" && result != strings.Join(fragments, "\n") {
		return Message{Type: MessageResult, Content: completedText + ":\n" + result}
	}
	return Message{Type: MessageDone, Content: completedText}
}
