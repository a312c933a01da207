package session

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/randalmurphal/claudebridge/claudecontract"
)

// Manager runs at most one Claude CLI invocation per key and reports what
// each invocation does through a Handler. It is safe for concurrent use.
type Manager struct {
	cfg      managerConfig
	logger   *slog.Logger
	stops    stopSet
	env      []string
	registry *registry
	events   *dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewManager creates a manager that reports to h.
func NewManager(h Handler, opts ...Option) *Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.clock == nil {
		cfg.clock = realClock{}
	}
	if cfg.launcher == nil {
		cfg.launcher = &ExecLauncher{KillGrace: cfg.killGrace, Logger: cfg.logger}
	}
	if h == nil {
		h = HandlerFuncs{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		logger:   cfg.logger,
		stops:    newStopSet(cfg.stopKeywords),
		env:      mergeEnv(cfg.extraEnv),
		registry: newRegistry(),
		events:   newDispatcher(h, cfg.logger),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SendMessage starts a CLI run for key with text on stdin, replacing any run
// already in progress for key. It returns once the process is launched (or
// failed to launch); output and the outcome arrive on the Handler.
//
// A stop keyword terminates the current run instead. A leading reset token
// starts the run without --continue. Text that is empty once the token is
// removed emits an error event and returns ErrEmptyMessage; the current run,
// if any, keeps going.
func (m *Manager) SendMessage(key, text string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	if m.stops.matches(text) {
		m.stop(key)
		return nil
	}

	d := parseDirective(text, m.cfg.resetTokens)
	if d.prompt == "" {
		m.events.enqueue(Event{Kind: EventError, Key: key, Text: emptyMessageText})
		return ErrEmptyMessage
	}

	runID := uuid.NewString()
	s := newSession(m, key, runID, m.commandSpec(d))

	if replaced := m.registry.acquire(key, s); replaced {
		m.logger.Info("terminated previous claude run", "key", key)
	}
	if m.closed.Load() {
		m.registry.releaseIf(key, s)
		return ErrManagerClosed
	}

	m.logger.Info("starting claude run",
		"key", key,
		"run_id", runID,
		"fresh_context", d.fresh,
		"prompt_bytes", len(d.prompt),
	)
	s.start(m.ctx)
	return nil
}

func (m *Manager) commandSpec(d directive) CommandSpec {
	return CommandSpec{
		Path:       m.cfg.claudePath,
		Args:       claudecontract.PrintModeArgs(!d.fresh),
		Dir:        m.cfg.workdir,
		Env:        m.env,
		Stdin:      d.prompt,
		LoginShell: m.cfg.loginShell,
	}
}

func (m *Manager) stop(key string) {
	if m.registry.release(key) {
		m.logger.Info("stopped claude run on request", "key", key)
		m.events.enqueue(Event{Kind: EventMessage, Key: key, Message: Message{Type: MessageStopped, Content: stoppedText}})
		return
	}
	m.events.enqueue(Event{Kind: EventMessage, Key: key, Message: Message{Type: MessageInfo, Content: nothingToStopText}})
}

// CloseSession terminates the run for key without emitting anything. It
// reports whether there was one.
func (m *Manager) CloseSession(key string) bool {
	return m.registry.release(key)
}

// CloseAllSessions terminates every run and returns how many there were.
func (m *Manager) CloseAllSessions() int {
	n := m.registry.drain()
	if n > 0 {
		m.logger.Info("closed all claude runs", "count", n)
	}
	return n
}

// ActiveSessionCount returns the number of keys with a live run.
func (m *Manager) ActiveSessionCount() int {
	return m.registry.count()
}

// ActiveKeys returns the keys with a live run, in no particular order.
func (m *Manager) ActiveKeys() []string {
	return m.registry.keys()
}

// Close terminates every run, delivers the events already queued and stops
// the dispatch goroutine. Further SendMessage calls return ErrManagerClosed.
// Close must not be called from a Handler.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.cancel()
	m.CloseAllSessions()
	m.events.close()
	return nil
}
