// Package slackbot connects the session manager to Slack over Socket Mode.
//
// Direct messages and app mentions from allowed users or channels are sent to
// the manager with the channel ID as session key. Notifier turns the
// manager's events back into channel messages.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/sourcegraph/conc/pool"

	"github.com/randalmurphal/claudebridge/session"
)

const (
	deniedText = "❌ 이 봇을 사용할 권한이 없습니다. 관리자에게 문의하세요."
	failedText = "❌ 오류가 발생했습니다: %v"

	replyTimeout = 30 * time.Second
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// Sender starts work for a channel. *session.Manager implements it.
type Sender interface {
	SendMessage(key, text string) error
}

// Inbound is a chat message after Slack-specific decoding.
type Inbound struct {
	User        string
	Channel     string
	ChannelType string
	Text        string
	BotID       string
	SubType     string
	Mention     bool // delivered as app_mention
}

// IsDM reports whether the message arrived in a direct message channel.
func (in Inbound) IsDM() bool {
	return in.ChannelType == "im" || strings.HasPrefix(in.Channel, "D")
}

// Bot routes Slack events to a Sender.
type Bot struct {
	socket  *socketmode.Client
	sender  Sender
	poster  Poster
	allowed atomic.Pointer[[]string]
	logger  *slog.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

// New creates a Bot on top of api. Replies to denied or failed requests go
// through poster.
func New(api *slack.Client, sender Sender, poster Poster, allowed []string, opts ...Option) *Bot {
	b := &Bot{
		sender: sender,
		poster: poster,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.SetAllowed(allowed)

	if api != nil {
		b.socket = socketmode.New(api,
			socketmode.OptionLog(slog.NewLogLogger(b.logger.Handler(), slog.LevelDebug)),
		)
	}
	return b
}

// SetAllowed replaces the allowlist. Safe for concurrent use.
func (b *Bot) SetAllowed(ids []string) {
	ids = slices.Clone(ids)
	b.allowed.Store(&ids)
}

// Allowed reports whether a user or channel ID is on the allowlist.
func (b *Bot) Allowed(user, channel string) bool {
	ids := *b.allowed.Load()
	return (user != "" && slices.Contains(ids, user)) ||
		(channel != "" && slices.Contains(ids, channel))
}

// Run connects to Slack and handles events until ctx is done or the
// connection fails.
func (b *Bot) Run(ctx context.Context) error {
	if b.socket == nil {
		return errors.New("slackbot: no slack client")
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		if err := b.socket.RunContext(ctx); err != nil {
			return fmt.Errorf("socket mode: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case evt, ok := <-b.socket.Events:
				if !ok {
					return nil
				}
				b.handleSocketEvent(ctx, evt)
			}
		}
	})

	err := p.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *Bot) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("connecting to slack socket mode")

	case socketmode.EventTypeConnected:
		b.logger.Info("connected to slack socket mode")

	case socketmode.EventTypeConnectionError:
		b.logger.Warn("slack connection error", "data", evt.Data)

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			b.socket.Ack(*evt.Request)
		}
		b.HandleEventsAPI(ctx, apiEvent)
	}
}

// HandleEventsAPI routes message and app_mention callbacks.
func (b *Bot) HandleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		b.HandleInbound(ctx, Inbound{
			User:        ev.User,
			Channel:     ev.Channel,
			ChannelType: ev.ChannelType,
			Text:        ev.Text,
			BotID:       ev.BotID,
			SubType:     ev.SubType,
		})
	case *slackevents.AppMentionEvent:
		b.HandleInbound(ctx, Inbound{
			User:    ev.User,
			Channel: ev.Channel,
			Text:    ev.Text,
			BotID:   ev.BotID,
			Mention: true,
		})
	}
}

// HandleInbound applies the routing rules to one message: plain messages are
// only taken from DMs (channels go through app_mention), bot messages and
// edits are ignored, and the sender must be allowed.
func (b *Bot) HandleInbound(ctx context.Context, in Inbound) {
	if in.BotID != "" || in.SubType != "" {
		return
	}
	if !in.Mention && !in.IsDM() {
		return
	}

	if !b.Allowed(in.User, in.Channel) {
		b.logger.Info("denied", "user", in.User, "channel", in.Channel)
		b.reply(ctx, in.Channel, deniedText)
		return
	}

	text := StripMentions(in.Text)
	b.logger.Info("inbound message", "user", in.User, "channel", in.Channel, "dm", in.IsDM(), "len", len(text))

	err := b.sender.SendMessage(in.Channel, text)
	switch {
	case err == nil, errors.Is(err, session.ErrEmptyMessage):
		// the manager already reported an empty message
	default:
		b.logger.Error("send to claude failed", "channel", in.Channel, "error", err)
		b.reply(ctx, in.Channel, fmt.Sprintf(failedText, err))
	}
}

func (b *Bot) reply(ctx context.Context, channel, text string) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	if err := b.poster.Post(ctx, channel, text); err != nil {
		b.logger.Error("failed to reply", "channel", channel, "error", err)
	}
}

// StripMentions removes <@U123> tokens and trims the result.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}
