package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
)

// writeScript drops an executable shell script acting as the game binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script targets require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "game")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

// TestWaitExitZero yields a clean Exited(0) for a well-behaved process.
func TestWaitExitZero(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	session, err := s.Launch(ctx, writeScript(t, "exit 0"))
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.NotZero(t, session.PID)

	status, err := s.Wait(ctx, session)
	require.NoError(t, err)
	require.Equal(t, release.SessionExited, status.State)
	require.Equal(t, 0, status.Code)
	require.Equal(t, release.SessionExited, session.State())
}

// TestWaitNonZeroExit surfaces the exit code as a CrashError.
func TestWaitNonZeroExit(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	session, err := s.Launch(ctx, writeScript(t, "exit 3"))
	require.NoError(t, err)

	status, err := s.Wait(ctx, session)

	var crash *release.CrashError
	require.ErrorAs(t, err, &crash)
	require.Equal(t, 3, crash.ExitCode)
	require.Empty(t, crash.Signal)
	require.Equal(t, release.SessionExited, status.State)
	require.Equal(t, 3, status.Code)
}

// TestWaitKilledBySignal classifies a signal death as Crashed.
func TestWaitKilledBySignal(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	session, err := s.Launch(ctx, writeScript(t, "kill -KILL $$"))
	require.NoError(t, err)

	status, err := s.Wait(ctx, session)

	var crash *release.CrashError
	require.ErrorAs(t, err, &crash)
	require.Equal(t, -1, crash.ExitCode)
	require.Equal(t, "killed", crash.Signal)
	require.Equal(t, release.SessionCrashed, status.State)
	require.Equal(t, "killed", status.Signal)
	require.Equal(t, release.SessionCrashed, session.State())
}

// TestWaitCancellation terminates the child and reports ErrCancelled.
func TestWaitCancellation(t *testing.T) {
	t.Parallel()

	s := New(WithGracePeriod(2 * time.Second))

	session, err := s.Launch(context.Background(), writeScript(t, "sleep 30"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()

	status, err := s.Wait(ctx, session)
	require.ErrorIs(t, err, release.ErrCancelled)
	require.Equal(t, release.SessionCancelled, status.State)
	require.Equal(t, release.SessionCancelled, session.State())
	require.Less(t, time.Since(start), 10*time.Second, "cancellation must not wait out the child")
}

// TestWaitForcedKillAfterGracePeriod escalates when the child ignores SIGTERM.
func TestWaitForcedKillAfterGracePeriod(t *testing.T) {
	t.Parallel()

	s := New(WithGracePeriod(100 * time.Millisecond))

	session, err := s.Launch(context.Background(), writeScript(t, "trap '' TERM\nwhile true; do sleep 1; done"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := s.Wait(ctx, session)
	require.ErrorIs(t, err, release.ErrCancelled)
	require.Equal(t, release.SessionCancelled, status.State)
}

// TestWaitUnstartedSession rejects sessions that never launched.
func TestWaitUnstartedSession(t *testing.T) {
	t.Parallel()

	s := New()

	_, err := s.Wait(context.Background(), &Session{})
	require.Error(t, err)

	_, err = s.Wait(context.Background(), nil)
	require.Error(t, err)
}

// TestFindRunning reports absence without error.
func TestFindRunning(t *testing.T) {
	t.Parallel()

	_, running, err := FindRunning("tc2-no-such-process")
	require.NoError(t, err)
	require.False(t, running)
}
