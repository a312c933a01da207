package session

import (
	"log/slog"
	"time"
)

const (
	// DefaultTimeout is the hard limit for one CLI invocation.
	DefaultTimeout = time.Hour

	// DefaultPingInterval is how often a waiting notice is emitted.
	DefaultPingInterval = 30 * time.Second

	// DefaultExitGrace is how long the CLI may keep running after its result
	// record before it is terminated.
	DefaultExitGrace = 10 * time.Second
)

// Option configures a Manager.
type Option func(*managerConfig)

// managerConfig holds manager configuration.
type managerConfig struct {
	// CLI invocation
	claudePath string
	workdir    string
	loginShell string
	extraEnv   map[string]string

	// Supervision
	timeout      time.Duration
	pingInterval time.Duration
	killGrace    time.Duration
	exitGrace    time.Duration

	// Directives
	stopKeywords []string
	resetTokens  []string

	launcher Launcher
	clock    Clock
	logger   *slog.Logger
}

// defaultManagerConfig returns the default manager configuration.
func defaultManagerConfig() managerConfig {
	return managerConfig{
		claudePath:   "claude",
		timeout:      DefaultTimeout,
		pingInterval: DefaultPingInterval,
		killGrace:    DefaultKillGrace,
		exitGrace:    DefaultExitGrace,
		stopKeywords: DefaultStopKeywords,
		resetTokens:  DefaultResetTokens,
		clock:        realClock{},
	}
}

// WithClaudePath sets the path to the claude binary.
func WithClaudePath(path string) Option {
	return func(c *managerConfig) {
		if path != "" {
			c.claudePath = path
		}
	}
}

// WithWorkdir sets the directory the CLI runs in. --continue resumes the most
// recent conversation of this directory.
func WithWorkdir(dir string) Option {
	return func(c *managerConfig) { c.workdir = dir }
}

// WithLoginShell runs the CLI through `<shell> -l -c` so that the login
// profile (PATH, credentials) applies.
func WithLoginShell(shell string) Option {
	return func(c *managerConfig) { c.loginShell = shell }
}

// WithEnv adds environment variables to the CLI process.
func WithEnv(env map[string]string) Option {
	return func(c *managerConfig) {
		if c.extraEnv == nil {
			c.extraEnv = make(map[string]string)
		}
		for k, v := range env {
			c.extraEnv[k] = v
		}
	}
}

// WithTimeout sets the hard limit per invocation. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *managerConfig) { c.timeout = d }
}

// WithPingInterval sets the waiting notice interval. Zero disables notices.
func WithPingInterval(d time.Duration) Option {
	return func(c *managerConfig) { c.pingInterval = d }
}

// WithKillGrace sets how long a terminated process gets before SIGKILL.
// It applies to the default launcher only.
func WithKillGrace(d time.Duration) Option {
	return func(c *managerConfig) { c.killGrace = d }
}

// WithExitGrace sets how long the CLI may keep running after its result
// before the session is released and the process terminated. Zero waits for
// the process indefinitely.
func WithExitGrace(d time.Duration) Option {
	return func(c *managerConfig) { c.exitGrace = d }
}

// WithStopKeywords replaces the stop keyword list.
func WithStopKeywords(keywords ...string) Option {
	return func(c *managerConfig) { c.stopKeywords = keywords }
}

// WithResetTokens replaces the fresh-context token list.
func WithResetTokens(tokens ...string) Option {
	return func(c *managerConfig) { c.resetTokens = tokens }
}

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(c *managerConfig) { c.launcher = l }
}

// WithClock replaces the timer source.
func WithClock(clk Clock) Option {
	return func(c *managerConfig) { c.clock = clk }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *managerConfig) { c.logger = l }
}
