package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
)

// Poster delivers text to a Slack channel.
type Poster interface {
	Post(ctx context.Context, channelID, text string) error
}

// APIConfig holds what is needed to reach Slack.
type APIConfig struct {
	BotToken string // xoxb-... bot token
	AppToken string // xapp-... app-level token for Socket Mode
	Debug    bool
	Logger   *slog.Logger
}

// NewAPI creates a Slack Web API client able to open a Socket Mode connection.
func NewAPI(cfg APIConfig) (*slack.Client, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, errors.New("app token must start with xapp-")
	}

	opts := []slack.Option{
		slack.OptionDebug(cfg.Debug),
		slack.OptionAppLevelToken(cfg.AppToken),
	}
	if cfg.Logger != nil {
		opts = append(opts, slack.OptionLog(slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelDebug)))
	}
	return slack.New(cfg.BotToken, opts...), nil
}

// SlackPoster posts with chat.postMessage.
type SlackPoster struct {
	api *slack.Client
}

// NewSlackPoster returns a Poster backed by the Web API.
func NewSlackPoster(api *slack.Client) *SlackPoster {
	return &SlackPoster{api: api}
}

// Post implements Poster.
func (p *SlackPoster) Post(ctx context.Context, channelID, text string) error {
	_, _, err := p.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("chat.postMessage %s: %w", channelID, err)
	}
	return nil
}
