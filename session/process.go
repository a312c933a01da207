package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultKillGrace is how long a process may take to exit after SIGTERM
	// before its process group is sent SIGKILL.
	DefaultKillGrace = 5 * time.Second

	stderrTailBytes = 4 * 1024

	// loginShellScript replaces the shell with the CLI, keeping argv intact.
	// The prompt never appears in it; it is written to stdin.
	loginShellScript = `exec "$0" "$@"`
)

// CommandSpec describes one CLI invocation.
type CommandSpec struct {
	Path  string
	Args  []string
	Dir   string
	Env   []string // nil inherits the current environment
	Stdin string

	// LoginShell, when set, runs Path through `<LoginShell> -l -c` so the
	// user's login profile applies.
	LoginShell string
}

// Argv returns the program and arguments that will actually be executed.
func (c CommandSpec) Argv() (string, []string) {
	if c.LoginShell == "" {
		return c.Path, c.Args
	}
	args := make([]string, 0, len(c.Args)+4)
	args = append(args, "-l", "-c", loginShellScript, c.Path)
	args = append(args, c.Args...)
	return c.LoginShell, args
}

// ExitStatus describes how a process ended.
type ExitStatus struct {
	Code   int
	Signal string // set when the process was killed by a signal
}

// Success reports a zero exit code without a signal.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == ""
}

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return "signal: " + s.Signal
	}
	return fmt.Sprintf("exit code %d", s.Code)
}

// Process is a started CLI invocation.
type Process interface {
	// PID returns the operating system process id.
	PID() int

	// Stdout is the CLI's standard output. Read it to EOF before Wait.
	Stdout() io.Reader

	// Wait blocks until the process exits. The error is non-nil only when the
	// exit status could not be obtained.
	Wait() (ExitStatus, error)

	// Stderr returns the tail of the process's standard error.
	Stderr() string

	// Terminate asks the process to stop and forces it if it does not.
	// It returns immediately and is safe to call repeatedly or after exit.
	Terminate()
}

// Launcher starts processes.
type Launcher interface {
	Launch(ctx context.Context, spec CommandSpec) (Process, error)
}

// ExecLauncher starts real processes in their own process group so that
// Terminate reaches the CLI's children (MCP servers, shells) too.
type ExecLauncher struct {
	KillGrace time.Duration
	Logger    *slog.Logger
}

// Launch implements Launcher.
func (l *ExecLauncher) Launch(ctx context.Context, spec CommandSpec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grace := l.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name, args := spec.Argv()
	cmd := exec.Command(name, args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = strings.NewReader(spec.Stdin)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Children that inherited stderr must not hold Wait open forever.
	cmd.WaitDelay = grace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Path, err)
	}

	return &execProcess{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		grace:  grace,
		logger: logger,
		exited: make(chan struct{}),
	}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr *tailBuffer
	grace  time.Duration
	logger *slog.Logger

	exited    chan struct{}
	waitOnce  sync.Once
	status    ExitStatus
	waitErr   error
	terminate sync.Once
}

func (p *execProcess) PID() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() string    { return strings.TrimSpace(p.stderr.String()) }

func (p *execProcess) Wait() (ExitStatus, error) {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		close(p.exited)

		var exitErr *exec.ExitError
		switch {
		case err == nil, errors.Is(err, exec.ErrWaitDelay):
		case errors.As(err, &exitErr):
			p.status.Code = exitErr.ExitCode()
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				p.status.Signal = ws.Signal().String()
			}
		default:
			p.status.Code = -1
			p.waitErr = err
		}
	})
	return p.status, p.waitErr
}

func (p *execProcess) Terminate() {
	p.terminate.Do(func() {
		select {
		case <-p.exited:
			return
		default:
		}

		pgid := p.cmd.Process.Pid
		if err := unix.Kill(-pgid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
			p.logger.Warn("failed to signal process group", "pgid", pgid, "error", err)
		}

		go func() {
			timer := time.NewTimer(p.grace)
			defer timer.Stop()
			select {
			case <-p.exited:
			case <-timer.C:
				p.logger.Warn("process ignored SIGTERM, killing", "pgid", pgid, "grace", p.grace)
				_ = unix.Kill(-pgid, unix.SIGKILL)
			}
		}()
	})
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// mergeEnv overlays extra onto the current environment. It returns nil when
// there is nothing to add so the child simply inherits.
func mergeEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range extra {
		env = setEnvVar(env, k, v)
	}
	return env
}

// setEnvVar updates or adds an environment variable.
func setEnvVar(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
