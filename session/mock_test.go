package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testTimeout = time.Hour
	testPing    = 30 * time.Second
)

// fakeLauncher records every launch and hands out fakeProcesses.
type fakeLauncher struct {
	mu    sync.Mutex
	procs []*fakeProcess
	specs []CommandSpec
	err   error
}

func (l *fakeLauncher) Launch(_ context.Context, spec CommandSpec) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	p := newFakeProcess(1000 + len(l.procs))
	l.procs = append(l.procs, p)
	l.specs = append(l.specs, spec)
	return p, nil
}

func (l *fakeLauncher) launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

func (l *fakeLauncher) process(t *testing.T, i int) *fakeProcess {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.Greater(t, len(l.procs), i, "process %d was never launched", i)
	return l.procs[i]
}

func (l *fakeLauncher) spec(t *testing.T, i int) CommandSpec {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.Greater(t, len(l.specs), i, "process %d was never launched", i)
	return l.specs[i]
}

// fakeProcess exposes its stdout as a pipe the test writes to. Terminate
// behaves like a signal: stdout closes and Wait reports the signal.
type fakeProcess struct {
	pid    int
	r      *io.PipeReader
	w      *io.PipeWriter
	exit   chan ExitStatus
	stderr string

	finishOnce sync.Once
	terminated atomic.Int32
}

func newFakeProcess(pid int) *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{pid: pid, r: r, w: w, exit: make(chan ExitStatus, 1)}
}

func (p *fakeProcess) PID() int          { return p.pid }
func (p *fakeProcess) Stdout() io.Reader { return p.r }
func (p *fakeProcess) Stderr() string    { return p.stderr }

func (p *fakeProcess) Wait() (ExitStatus, error) {
	return <-p.exit, nil
}

func (p *fakeProcess) Terminate() {
	p.terminated.Add(1)
	p.finish(ExitStatus{Code: -1, Signal: "terminated"})
}

func (p *fakeProcess) finish(st ExitStatus) {
	p.finishOnce.Do(func() {
		_ = p.w.Close()
		p.exit <- st
	})
}

// write sends lines on stdout. Writes to a finished process are dropped.
func (p *fakeProcess) write(lines ...string) {
	for _, line := range lines {
		_, _ = p.w.Write([]byte(line + "\n"))
	}
}

func (p *fakeProcess) exitWith(code int) {
	p.finish(ExitStatus{Code: code})
}

func (p *fakeProcess) wasTerminated() bool {
	return p.terminated.Load() > 0
}

// fakeClock only fires timers when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock { return &fakeClock{} }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// pending counts armed timers with duration d.
func (c *fakeClock) pending(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.d == d && !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fire runs the most recently armed timer with duration d.
func (c *fakeClock) fire(t *testing.T, d time.Duration) {
	t.Helper()
	c.mu.Lock()
	var target *fakeTimer
	for i := len(c.timers) - 1; i >= 0; i-- {
		if tm := c.timers[i]; tm.d == d && !tm.stopped && !tm.fired {
			target = tm
			break
		}
	}
	if target != nil {
		target.fired = true
	}
	c.mu.Unlock()

	require.NotNil(t, target, "no armed %v timer", d)
	target.f()
}

// recorder is a Handler that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnWaiting(key, text string) {
	r.add(Event{Kind: EventWaiting, Key: key, Text: text})
}

func (r *recorder) OnStream(key, text string) {
	r.add(Event{Kind: EventStream, Key: key, Text: text})
}

func (r *recorder) OnToolUse(key, toolName, details string) {
	r.add(Event{Kind: EventToolUse, Key: key, ToolName: toolName, Text: details})
}

func (r *recorder) OnMessage(key string, msg Message) {
	r.add(Event{Kind: EventMessage, Key: key, Message: msg})
}

func (r *recorder) OnError(key, message string) {
	r.add(Event{Kind: EventError, Key: key, Text: message})
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// waitFor blocks until at least n events arrived and returns them.
func (r *recorder) waitFor(t *testing.T, n int) []Event {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.snapshot()) >= n }, 2*time.Second, 2*time.Millisecond,
		"expected %d events, have %v", n, r.snapshot())
	return r.snapshot()
}

func terminalEvents(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == EventMessage || e.Kind == EventError {
			out = append(out, e)
		}
	}
	return out
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	m        *Manager
	launcher *fakeLauncher
	clock    *fakeClock
	rec      *recorder
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		launcher: &fakeLauncher{},
		clock:    newFakeClock(),
		rec:      &recorder{},
	}
	base := []Option{
		WithLauncher(env.launcher),
		WithClock(env.clock),
		WithLogger(quietLogger()),
		WithTimeout(testTimeout),
		WithPingInterval(testPing),
	}
	env.m = NewManager(env.rec, append(base, opts...)...)
	t.Cleanup(func() { _ = env.m.Close() })
	return env
}

// waitIdle waits until no session is registered.
func (env *testEnv) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return env.m.ActiveSessionCount() == 0 }, 2*time.Second, 2*time.Millisecond)
}

// settle closes the manager so every queued event has been delivered.
func (env *testEnv) settle(t *testing.T) []Event {
	t.Helper()
	require.NoError(t, env.m.Close())
	return env.rec.snapshot()
}
