package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the effective configuration: defaults, then the file at path
// (skipped when path is empty), then environment variables. It validates the
// result with Validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeFile overlays the file at path onto cfg. The format follows the
// extension: .toml, .yaml or .yml.
func DecodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("%w: unknown keys in %s: %v", ErrInvalidConfig, path, undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config format %q (want .toml, .yaml or .yml)", ErrInvalidConfig, ext)
	}
	return nil
}

// EnvVars lists every environment variable LoadFromEnv reads.
var EnvVars = []string{
	"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "SLACK_SIGNING_SECRET", "ALLOWED_USER_IDS",
	"WORKSPACE_DIR", "CLAUDE_PATH", "SLACK_MCP_URL", "SLACK_MCP_API_KEY",
	"CLAUDEBRIDGE_POSTER", "CLAUDEBRIDGE_LOGIN_SHELL", "CLAUDEBRIDGE_TIMEOUT",
	"CLAUDEBRIDGE_PING_INTERVAL", "CLAUDEBRIDGE_KILL_GRACE", "CLAUDEBRIDGE_STOP_KEYWORDS",
	"CLAUDEBRIDGE_RESET_TOKENS", "CLAUDEBRIDGE_LOG_LEVEL", "CLAUDEBRIDGE_LOG_FORMAT",
	"CLAUDEBRIDGE_LOCK_FILE", "CLAUDEBRIDGE_SLACK_DEBUG",
}

// EnvOverrides returns the variables from EnvVars that are set to a non-empty
// value and therefore take precedence over the config file.
func EnvOverrides() []string {
	var set []string
	for _, k := range EnvVars {
		if os.Getenv(k) != "" {
			set = append(set, k)
		}
	}
	return set
}

// LoadFromEnv overrides fields from environment variables. The Slack and
// workspace variables keep the names the bridge has always used; the rest use
// the CLAUDEBRIDGE_ prefix. Unparseable values are ignored.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.SlackBotToken = v
	}
	if v := os.Getenv("SLACK_APP_TOKEN"); v != "" {
		c.SlackAppToken = v
	}
	if v := os.Getenv("SLACK_SIGNING_SECRET"); v != "" {
		c.SlackSigningSecret = v
	}
	if v := os.Getenv("ALLOWED_USER_IDS"); v != "" {
		c.AllowedIDs = splitList(v)
	}
	if v := os.Getenv("WORKSPACE_DIR"); v != "" {
		c.WorkspaceDir = v
	}
	if v := os.Getenv("CLAUDE_PATH"); v != "" {
		c.ClaudePath = v
	}
	if v := os.Getenv("SLACK_MCP_URL"); v != "" {
		c.MCPURL = v
	}
	if v := os.Getenv("SLACK_MCP_API_KEY"); v != "" {
		c.MCPAPIKey = v
	}

	if v := os.Getenv("CLAUDEBRIDGE_POSTER"); v != "" {
		c.Poster = v
	}
	if v := os.Getenv("CLAUDEBRIDGE_LOGIN_SHELL"); v != "" {
		c.LoginShell = v
	}
	if v := os.Getenv("CLAUDEBRIDGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("CLAUDEBRIDGE_PING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PingInterval = Duration(d)
		}
	}
	if v := os.Getenv("CLAUDEBRIDGE_KILL_GRACE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.KillGrace = Duration(d)
		}
	}
	if v := os.Getenv("CLAUDEBRIDGE_STOP_KEYWORDS"); v != "" {
		c.StopKeywords = splitList(v)
	}
	if v := os.Getenv("CLAUDEBRIDGE_RESET_TOKENS"); v != "" {
		c.ResetTokens = splitList(v)
	}
	if v := os.Getenv("CLAUDEBRIDGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CLAUDEBRIDGE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("CLAUDEBRIDGE_LOCK_FILE"); v != "" {
		c.LockFile = v
	}
	if v := os.Getenv("CLAUDEBRIDGE_SLACK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SlackDebug = b
		}
	}
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Variables
// that are already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := gotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
