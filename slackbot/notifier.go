package slackbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/claudebridge/session"
)

// errorPrefix marks failures posted to the channel.
const errorPrefix = "❌ Claude 오류: "

const defaultPostTimeout = 30 * time.Second

// Notifier renders session events as Slack messages. The session key is the
// channel ID.
type Notifier struct {
	poster  Poster
	logger  *slog.Logger
	timeout time.Duration
	limit   int
}

var _ session.Handler = (*Notifier)(nil)

// NewNotifier returns a Notifier posting through p.
func NewNotifier(p Poster, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		poster:  p,
		logger:  logger,
		timeout: defaultPostTimeout,
		limit:   MaxMessageRunes,
	}
}

// OnWaiting implements session.Handler.
func (n *Notifier) OnWaiting(key, text string) { n.post(key, "waiting", text) }

// OnStream implements session.Handler.
func (n *Notifier) OnStream(key, text string) { n.post(key, "stream", text) }

// OnToolUse implements session.Handler.
func (n *Notifier) OnToolUse(key, toolName, details string) {
	n.logger.Debug("tool use", "channel", key, "tool", toolName)
	n.post(key, "tool_use", details)
}

// OnMessage implements session.Handler.
func (n *Notifier) OnMessage(key string, msg session.Message) {
	n.post(key, "message", msg.Content)
}

// OnError implements session.Handler.
func (n *Notifier) OnError(key, message string) {
	n.logger.Warn("claude error", "channel", key, "error", message)
	n.post(key, "error", errorPrefix+message)
}

func (n *Notifier) post(channel, kind, text string) {
	if text == "" {
		return
	}
	for _, chunk := range splitMessage(text, n.limit) {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := n.poster.Post(ctx, channel, chunk)
		cancel()
		if err != nil {
			n.logger.Error("failed to post to slack", "channel", channel, "event", kind, "error", err)
			return
		}
	}
}
