// Package supervisor starts the installed game binary as a child process and
// tracks its lifetime. A session moves through Created -> Running and ends in
// exactly one of Exited, Crashed or Cancelled; terminal states are final and
// every launch creates a fresh session.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	ps "github.com/mitchellh/go-ps"

	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
	"github.com/mastercomfig/tc2-launcher/internal/logger"
)

// defaultGracePeriod is how long a cancelled child may shut down on its own
// before it is killed.
const defaultGracePeriod = 10 * time.Second

// errSessionNotStarted is returned when Wait is called on a session that was
// never launched.
var errSessionNotStarted = errors.New("session is not started")

// Session is the runtime handle to one launched process instance.
// It is never persisted; the process handle lives and dies with it.
type Session struct {
	// ID identifies the session in logs.
	ID string
	// PID is the child process identifier.
	PID int
	// StartedAt is when the child process started.
	StartedAt time.Time

	cmd *exec.Cmd

	// mu guards state.
	mu    sync.Mutex
	state release.SessionState
}

// State returns the current session state.
func (s *Session) State() release.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// setState advances the state machine. Terminal states never change again.
func (s *Session) setState(next release.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}

	s.state = next
}

// Supervisor launches and monitors game processes.
type Supervisor struct {
	// gracePeriod bounds cooperative shutdown on cancellation.
	gracePeriod time.Duration
}

// Option configures supervisor behaviour.
type Option func(*Supervisor)

// WithGracePeriod overrides the cancellation grace period.
func WithGracePeriod(period time.Duration) Option {
	return func(s *Supervisor) {
		if period > 0 {
			s.gracePeriod = period
		}
	}
}

// New creates a supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		gracePeriod: defaultGracePeriod,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Launch starts the binary at path as an independent child process in its own
// process group, with the artifact's directory as working directory. Nothing
// of the launcher's state is passed to the child beyond its invocation.
func (s *Supervisor) Launch(ctx context.Context, path string, args ...string) (*Session, error) {
	session := &Session{
		ID:    uuid.NewString(),
		state: release.SessionCreated,
	}

	//nolint:gosec // The path is the verified installed artifact.
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	session.cmd = cmd
	session.PID = cmd.Process.Pid
	session.StartedAt = time.Now()
	session.setState(release.SessionRunning)

	logger.InfoKV(ctx, "Game process started",
		"session_id", session.ID, "pid", session.PID, "path", path)

	return session, nil
}

// Wait blocks until the child exits or ctx is cancelled. On cancellation the
// child is asked to terminate, killed after the grace period, and the call
// fails with release.ErrCancelled. Abnormal termination surfaces a
// release.CrashError; the process is never restarted here.
func (s *Supervisor) Wait(ctx context.Context, session *Session) (release.ExitStatus, error) {
	if session == nil || session.cmd == nil {
		return release.ExitStatus{}, errSessionNotStarted
	}

	done := make(chan error, 1)

	go func() {
		done <- session.cmd.Wait()
	}()

	select {
	case err := <-done:
		return classify(session, err)
	case <-ctx.Done():
	}

	s.terminate(ctx, session, done)
	session.setState(release.SessionCancelled)

	logger.InfoKV(ctx, "Launch session cancelled", "session_id", session.ID, "pid", session.PID)

	return release.ExitStatus{State: release.SessionCancelled, Code: -1},
		fmt.Errorf("session %s: %w", session.ID, release.ErrCancelled)
}

// terminate signals the child to exit and escalates to a kill once the grace
// period expires. It returns only after the process is gone.
func (s *Supervisor) terminate(ctx context.Context, session *Session, done <-chan error) {
	if err := signalTerm(session.cmd.Process); err != nil {
		logger.WarnKV(ctx, "Unable to signal game process", "pid", session.PID, "error", err)
	}

	timer := time.NewTimer(s.gracePeriod)
	defer timer.Stop()

	select {
	case <-done:
		return
	case <-timer.C:
		logger.WarnKV(ctx, "Grace period expired, killing game process", "pid", session.PID)

		if err := session.cmd.Process.Kill(); err != nil {
			logger.WarnKV(ctx, "Unable to kill game process", "pid", session.PID, "error", err)
		}

		<-done
	}
}

// classify maps the wait result onto the session state machine.
// A zero exit is the only normal outcome; non-zero exits and signal deaths
// surface a CrashError with the captured code or signal.
func classify(session *Session, err error) (release.ExitStatus, error) {
	if err == nil {
		session.setState(release.SessionExited)

		return release.ExitStatus{State: release.SessionExited, Code: 0}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		session.setState(release.SessionCrashed)

		return release.ExitStatus{State: release.SessionCrashed, Code: -1},
			fmt.Errorf("wait for game process: %w", err)
	}

	if signal := terminationSignal(exitErr); signal != "" {
		session.setState(release.SessionCrashed)

		return release.ExitStatus{State: release.SessionCrashed, Code: -1, Signal: signal},
			&release.CrashError{ExitCode: -1, Signal: signal}
	}

	code := exitErr.ExitCode()
	session.setState(release.SessionExited)

	return release.ExitStatus{State: release.SessionExited, Code: code},
		&release.CrashError{ExitCode: code}
}

// FindRunning reports whether a process with the given executable name is
// already running, excluding the launcher itself.
func FindRunning(execName string) (int, bool, error) {
	processes, err := ps.Processes()
	if err != nil {
		return 0, false, fmt.Errorf("list processes: %w", err)
	}

	self := os.Getpid()

	for _, proc := range processes {
		if proc.Pid() != self && proc.Executable() == execName {
			return proc.Pid(), true, nil
		}
	}

	return 0, false, nil
}
