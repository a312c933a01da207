// Package config holds the bridge configuration: where the Claude CLI lives,
// how long a run may take, who may use the bot and how replies reach Slack.
//
// Values are layered: Default, then a TOML or YAML file, then environment
// variables (after an optional .env file). Load does all three.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/claudebridge/session"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Poster names.
const (
	PosterSlack = "slack" // chat.postMessage with the bot token
	PosterMCP   = "mcp"   // conversations_add_message through a Slack MCP server
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the full bridge configuration.
type Config struct {
	// --- Slack ---

	// SlackBotToken (xoxb-...) posts messages. Env: SLACK_BOT_TOKEN.
	SlackBotToken string `json:"slack_bot_token,omitempty" yaml:"slack_bot_token" toml:"slack_bot_token" jsonschema:"description=Bot token (xoxb-...)"`

	// SlackAppToken (xapp-...) opens the Socket Mode connection. Env: SLACK_APP_TOKEN.
	SlackAppToken string `json:"slack_app_token,omitempty" yaml:"slack_app_token" toml:"slack_app_token" jsonschema:"description=App-level token (xapp-...) for Socket Mode"`

	// SlackSigningSecret is accepted for parity with HTTP-mode apps; Socket
	// Mode does not need it. Env: SLACK_SIGNING_SECRET.
	SlackSigningSecret string `json:"slack_signing_secret,omitempty" yaml:"slack_signing_secret" toml:"slack_signing_secret"`

	// SlackDebug enables slack-go debug logging.
	SlackDebug bool `json:"slack_debug,omitempty" yaml:"slack_debug" toml:"slack_debug"`

	// AllowedIDs lists the user or channel IDs allowed to use the bot.
	// Env: ALLOWED_USER_IDS (comma separated).
	AllowedIDs []string `json:"allowed_ids" yaml:"allowed_ids" toml:"allowed_ids" jsonschema:"description=Slack user or channel IDs allowed to talk to the bot"`

	// Poster selects how replies are delivered: "slack" or "mcp".
	Poster string `json:"poster" yaml:"poster" toml:"poster" jsonschema:"enum=slack,enum=mcp,default=slack"`

	// MCPURL is the Slack MCP server base URL. Env: SLACK_MCP_URL.
	MCPURL string `json:"mcp_url,omitempty" yaml:"mcp_url" toml:"mcp_url"`

	// MCPAPIKey is the bearer token for the MCP server. Env: SLACK_MCP_API_KEY.
	MCPAPIKey string `json:"mcp_api_key,omitempty" yaml:"mcp_api_key" toml:"mcp_api_key"`

	// --- Claude CLI ---

	// ClaudePath is the claude binary. Default: "claude". Env: CLAUDE_PATH.
	ClaudePath string `json:"claude_path" yaml:"claude_path" toml:"claude_path" jsonschema:"default=claude"`

	// WorkspaceDir is the CLI's working directory; --continue resumes the
	// latest conversation of this directory. Env: WORKSPACE_DIR.
	WorkspaceDir string `json:"workspace_dir,omitempty" yaml:"workspace_dir" toml:"workspace_dir"`

	// LoginShell runs the CLI through `<shell> -l -c` when set, e.g. /bin/zsh.
	LoginShell string `json:"login_shell,omitempty" yaml:"login_shell" toml:"login_shell"`

	// Env adds environment variables to the CLI process.
	Env map[string]string `json:"env,omitempty" yaml:"env" toml:"env"`

	// --- Supervision ---

	// Timeout is the hard limit per run. Default: 1h.
	Timeout Duration `json:"timeout" yaml:"timeout" toml:"timeout"`

	// PingInterval is how often a waiting notice is posted. Default: 30s.
	PingInterval Duration `json:"ping_interval" yaml:"ping_interval" toml:"ping_interval"`

	// KillGrace is the SIGTERM to SIGKILL delay. Default: 5s.
	KillGrace Duration `json:"kill_grace" yaml:"kill_grace" toml:"kill_grace"`

	// StopKeywords replace the built-in stop keywords when non-empty.
	StopKeywords []string `json:"stop_keywords,omitempty" yaml:"stop_keywords" toml:"stop_keywords"`

	// ResetTokens replace the built-in fresh-context tokens when non-empty.
	ResetTokens []string `json:"reset_tokens,omitempty" yaml:"reset_tokens" toml:"reset_tokens"`

	// --- Process ---

	// LogLevel is debug, info, warn or error. Default: info.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// LogFormat is text or json. Default: text.
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" jsonschema:"enum=text,enum=json,default=text"`

	// LockFile guards against two bridges answering the same workspace.
	LockFile string `json:"lock_file,omitempty" yaml:"lock_file" toml:"lock_file"`
}

// Default returns a Config with the bridge defaults.
func Default() Config {
	return Config{
		Poster:       PosterSlack,
		ClaudePath:   "claude",
		Timeout:      Duration(session.DefaultTimeout),
		PingInterval: Duration(session.DefaultPingInterval),
		KillGrace:    Duration(session.DefaultKillGrace),
		LogLevel:     "info",
		LogFormat:    LogFormatText,
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	return wrapInvalid(c.problems())
}

func (c *Config) problems() []error {
	var errs []error

	if c.ClaudePath == "" {
		errs = append(errs, errors.New("claude_path is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %v", c.Timeout))
	}
	if c.PingInterval < 0 {
		errs = append(errs, fmt.Errorf("ping_interval must be >= 0, got %v", c.PingInterval))
	}
	if c.KillGrace < 0 {
		errs = append(errs, fmt.Errorf("kill_grace must be >= 0, got %v", c.KillGrace))
	}
	if c.Poster != PosterSlack && c.Poster != PosterMCP {
		errs = append(errs, fmt.Errorf("poster must be %q or %q, got %q", PosterSlack, PosterMCP, c.Poster))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Errorf("log_format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat))
	}
	return errs
}

// ValidateServe additionally checks what the Slack bridge needs.
func (c *Config) ValidateServe() error {
	errs := c.problems()

	if len(c.AllowedIDs) == 0 {
		errs = append(errs, errors.New("allowed_ids (ALLOWED_USER_IDS) is required"))
	}
	if !strings.HasPrefix(c.SlackAppToken, "xapp-") {
		errs = append(errs, errors.New("slack_app_token (SLACK_APP_TOKEN) must be an xapp- token"))
	}
	if c.SlackBotToken == "" {
		errs = append(errs, errors.New("slack_bot_token (SLACK_BOT_TOKEN) is required"))
	}
	if c.Poster == PosterMCP {
		if c.MCPURL == "" {
			errs = append(errs, errors.New("mcp_url (SLACK_MCP_URL) is required when poster is mcp"))
		}
		if c.MCPAPIKey == "" {
			errs = append(errs, errors.New("mcp_api_key (SLACK_MCP_API_KEY) is required when poster is mcp"))
		}
	}

	return wrapInvalid(errs)
}

func wrapInvalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// SessionOptions converts the config to session manager options.
func (c *Config) SessionOptions() []session.Option {
	opts := []session.Option{
		session.WithClaudePath(c.ClaudePath),
		session.WithTimeout(c.Timeout.Std()),
		session.WithPingInterval(c.PingInterval.Std()),
	}
	if c.KillGrace > 0 {
		opts = append(opts, session.WithKillGrace(c.KillGrace.Std()))
	}
	if c.WorkspaceDir != "" {
		opts = append(opts, session.WithWorkdir(c.WorkspaceDir))
	}
	if c.LoginShell != "" {
		opts = append(opts, session.WithLoginShell(c.LoginShell))
	}
	if len(c.Env) > 0 {
		opts = append(opts, session.WithEnv(c.Env))
	}
	if len(c.StopKeywords) > 0 {
		opts = append(opts, session.WithStopKeywords(c.StopKeywords...))
	}
	if len(c.ResetTokens) > 0 {
		opts = append(opts, session.WithResetTokens(c.ResetTokens...))
	}
	return opts
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	c.SlackBotToken = redact(c.SlackBotToken)
	c.SlackAppToken = redact(c.SlackAppToken)
	c.SlackSigningSecret = redact(c.SlackSigningSecret)
	c.MCPAPIKey = redact(c.MCPAPIKey)
	if len(c.Env) > 0 {
		env := make(map[string]string, len(c.Env))
		for k := range c.Env {
			env[k] = redact(c.Env[k])
		}
		c.Env = env
	}
	return c
}

func redact(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:5] + "****"
	}
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
	return l, nil
}
