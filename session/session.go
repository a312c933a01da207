package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/randalmurphal/claudebridge/streamjson"
)

// session is one CLI invocation for one key. Starting → Streaming →
// Terminal; responded marks Terminal and guards every emitting path so the
// result record, the process exit, a process failure and the hard timeout
// produce exactly one terminal event between them.
type session struct {
	m      *Manager
	key    string
	runID  string
	spec   CommandSpec
	logger *slog.Logger

	mu        sync.Mutex
	proc      Process
	sup       supervisor
	responded bool
	detached  bool // torn down; nothing may be emitted any more
	fragments []string
	cliID     string
	startedAt time.Time
}

func newSession(m *Manager, key, runID string, spec CommandSpec) *session {
	return &session{
		m:      m,
		key:    key,
		runID:  runID,
		spec:   spec,
		logger: m.logger.With("key", key, "run_id", runID),
		sup: supervisor{
			clock:     m.cfg.clock,
			timeout:   m.cfg.timeout,
			interval:  m.cfg.pingInterval,
			exitGrace: m.cfg.exitGrace,
		},
	}
}

// emitLocked queues an event for this session's key. Callers hold s.mu.
func (s *session) emitLocked(e Event) {
	e.Key = s.key
	s.m.events.enqueue(e)
}

// start launches the process and arms the timers. A session torn down before
// it got here is not launched at all.
func (s *session) start(ctx context.Context) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}

	proc, err := s.m.cfg.launcher.Launch(ctx, s.spec)
	if err != nil {
		s.responded = true
		s.emitLocked(Event{Kind: EventError, Text: err.Error()})
		s.mu.Unlock()

		s.logger.Error("failed to launch claude", "error", err)
		s.m.registry.releaseIf(s.key, s)
		return
	}

	s.proc = proc
	s.startedAt = time.Now()
	s.sup.start(s.onTimeout, s.onTick)
	s.mu.Unlock()

	s.logger.Info("claude process started", "pid", proc.PID())
	go s.read(proc)
}

// read consumes stdout to EOF, then reaps the process.
func (s *session) read(proc Process) {
	dec := streamjson.NewDecoder(streamjson.WithLogger(s.logger))
	for rec, err := range dec.Stream(proc.Stdout()) {
		if err != nil {
			s.onFailure(fmt.Errorf("read output: %w", err))
			continue
		}
		s.onRecord(rec)
	}

	status, err := proc.Wait()
	if err != nil {
		s.onFailure(fmt.Errorf("wait for process: %w", err))
	}
	s.onExit(status, proc.Stderr())
}

func (s *session) onRecord(rec streamjson.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.responded {
		return
	}

	switch rec.Kind {
	case streamjson.KindInit:
		s.cliID = rec.Init.SessionID
		s.sup.progress(s.onTick)
		s.emitLocked(Event{Kind: EventStream, Text: initText(rec.Init)})

	case streamjson.KindAssistant:
		s.sup.progress(s.onTick)
		for _, block := range rec.Assistant.Content {
			switch {
			case block.IsText():
				text := strings.TrimSpace(block.Text)
				if text == "" {
					continue
				}
				s.fragments = append(s.fragments, text)
				s.emitLocked(Event{Kind: EventStream, Text: text})
			case block.IsToolUse():
				s.emitLocked(Event{Kind: EventToolUse, ToolName: block.Name, Text: toolUseText(block)})
			}
		}

	case streamjson.KindResult:
		s.responded = true
		s.sup.stop()
		s.sup.awaitExit(s.onLinger)

		if rec.Result.IsSuccess() {
			s.emitLocked(Event{Kind: EventMessage, Message: completion(rec.Result.Result, s.fragments)})
			s.logger.Info("claude run completed",
				"cli_session_id", s.cliID,
				"duration_ms", rec.Result.DurationMS,
				"cost_usd", rec.Result.TotalCostUSD,
			)
			return
		}

		text := rec.Result.ErrorText()
		if text == "" {
			text = resultErrorText(rec.Result.Subtype)
		}
		s.emitLocked(Event{Kind: EventError, Text: text})
		s.logger.Warn("claude run failed", "subtype", rec.Result.Subtype, "error", text)
	}
}

// onExit runs once the process has been reaped. It reports only if nothing
// terminal was reported before, and always releases the session.
func (s *session) onExit(status ExitStatus, stderr string) {
	s.mu.Lock()
	if !s.responded {
		s.responded = true
		s.sup.stop()
		if status.Success() {
			s.emitLocked(Event{Kind: EventMessage, Message: Message{Type: MessageDone, Content: completedText}})
		} else {
			s.emitLocked(Event{Kind: EventError, Text: exitText(status, stderr)})
		}
	}
	detached, startedAt := s.detached, s.startedAt
	s.mu.Unlock()

	s.logger.Info("claude process exited",
		"status", status.String(),
		"elapsed", time.Since(startedAt).Round(time.Millisecond),
		"detached", detached,
	)
	s.m.registry.releaseIf(s.key, s)
}

// onFailure handles launch-time and runtime process errors.
func (s *session) onFailure(err error) {
	s.mu.Lock()
	if s.responded {
		s.mu.Unlock()
		return
	}
	s.responded = true
	s.sup.stop()
	s.emitLocked(Event{Kind: EventError, Text: err.Error()})
	s.mu.Unlock()

	s.logger.Error("claude process failed", "error", err)
	s.m.registry.releaseIf(s.key, s)
}

func (s *session) onTimeout() {
	s.mu.Lock()
	if s.responded {
		s.mu.Unlock()
		return
	}
	s.responded = true
	s.sup.stop()
	s.emitLocked(Event{Kind: EventError, Text: timeoutText(s.sup.timeout)})
	s.mu.Unlock()

	s.logger.Warn("claude run timed out", "timeout", s.sup.timeout)
	s.m.registry.releaseIf(s.key, s)
}

// onLinger releases a session whose process reported a result but kept
// running past the exit grace.
func (s *session) onLinger() {
	s.mu.Lock()
	detached := s.detached
	s.mu.Unlock()
	if detached {
		return
	}

	s.logger.Warn("claude did not exit after its result, terminating", "grace", s.sup.exitGrace)
	s.m.registry.releaseIf(s.key, s)
}

func (s *session) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.responded {
		return
	}
	n, ok := s.sup.tick(gen)
	if !ok {
		return
	}
	s.emitLocked(Event{Kind: EventWaiting, Text: waitingText(s.sup.elapsed(n))})
	s.sup.armPing(s.onTick)
}

// teardown stops the timers, silences every callback and terminates the
// process. It is idempotent.
func (s *session) teardown() {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	s.responded = true
	s.sup.stop()
	proc := s.proc
	s.mu.Unlock()

	if proc != nil {
		proc.Terminate()
	}
}
