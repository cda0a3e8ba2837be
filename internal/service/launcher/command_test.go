package launcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
)

// newReleaseServer serves a single v1.2.0 release whose platform asset is the
// provided artifact.
func newReleaseServer(t *testing.T, artifact []byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/artifact", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(artifact)
	})

	var ts *httptest.Server

	mux.HandleFunc("/repos/mastercomfig/tc2/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		sum := sha256.Sum256(artifact)

		body := fmt.Sprintf(`{
			"tag_name": "v1.2.0",
			"assets": [{
				"name": "tc2-%s-%s",
				"browser_download_url": %q,
				"size": %d,
				"digest": "sha256:%s"
			}]
		}`, runtime.GOOS, runtime.GOARCH, ts.URL+"/artifact", len(artifact), hex.EncodeToString(sum[:]))

		_, _ = w.Write([]byte(body))
	})

	ts = httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

// setupEnvironment isolates the data directory and writes settings pointing
// at the test server.
func setupEnvironment(t *testing.T, endpoint string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script targets require a POSIX shell")
	}

	t.Setenv("XDG_DATA_HOME", t.TempDir())

	settingsPath := filepath.Join(t.TempDir(), "settings.yaml")
	settings := fmt.Sprintf("game_repo: mastercomfig/tc2\napi_endpoint: %q\n", endpoint)
	require.NoError(t, os.WriteFile(settingsPath, []byte(settings), 0o600))

	return settingsPath
}

// eventRecorder collects emitted events for assertions.
type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) sink(ev Event) {
	r.events = append(r.events, ev)
}

// has reports whether an event of the same type as probe was emitted.
func (r *eventRecorder) has(probe Event) bool {
	for _, ev := range r.events {
		if fmt.Sprintf("%T", ev) == fmt.Sprintf("%T", probe) {
			return true
		}
	}

	return false
}

// TestRunInstallsAndLaunches drives the full first-run flow: resolve,
// download, verify, record, launch, wait.
func TestRunInstallsAndLaunches(t *testing.T) {
	artifact := []byte("#!/bin/sh\nexit 0\n")
	ts := newReleaseServer(t, artifact)
	settingsPath := setupEnvironment(t, ts.URL)

	rec := &eventRecorder{}
	ctx := context.Background()

	err := Run(ctx, &Options{ConfigPath: settingsPath, Events: rec.sink})
	require.NoError(t, err)

	require.True(t, rec.has(UpdateAvailableEvent{}))
	require.True(t, rec.has(ProgressEvent{}))
	require.True(t, rec.has(InstalledEvent{}))
	require.True(t, rec.has(LaunchedEvent{}))
	require.True(t, rec.has(FinishedEvent{}))

	for _, ev := range rec.events {
		if finished, ok := ev.(FinishedEvent); ok {
			require.Equal(t, release.SessionExited, finished.Status.State)
			require.Equal(t, 0, finished.Status.Code)
		}
	}

	// The install is recorded and survives for the next run.
	installed, err := Installed(ctx, settingsPath)
	require.NoError(t, err)
	require.NotNil(t, installed)
	require.Equal(t, "1.2.0", installed.Version)

	contents, err := os.ReadFile(installed.Path)
	require.NoError(t, err)
	require.Equal(t, artifact, contents)

	// A second run sees the same remote version and launches without installing.
	rec = &eventRecorder{}
	require.NoError(t, Run(ctx, &Options{ConfigPath: settingsPath, Events: rec.sink}))
	require.True(t, rec.has(UpToDateEvent{}))
	require.False(t, rec.has(InstalledEvent{}))
	require.True(t, rec.has(FinishedEvent{}))
}

// TestRunCheckOnly reports availability without installing or launching.
func TestRunCheckOnly(t *testing.T) {
	ts := newReleaseServer(t, []byte("#!/bin/sh\nexit 0\n"))
	settingsPath := setupEnvironment(t, ts.URL)

	rec := &eventRecorder{}

	err := Run(context.Background(), &Options{ConfigPath: settingsPath, CheckOnly: true, Events: rec.sink})
	require.NoError(t, err)

	require.True(t, rec.has(UpdateAvailableEvent{}))
	require.False(t, rec.has(InstalledEvent{}))
	require.False(t, rec.has(LaunchedEvent{}))

	installed, err := Installed(context.Background(), settingsPath)
	require.NoError(t, err)
	require.Nil(t, installed)
}

// TestRunInstallOnly installs but never launches.
func TestRunInstallOnly(t *testing.T) {
	ts := newReleaseServer(t, []byte("#!/bin/sh\nexit 0\n"))
	settingsPath := setupEnvironment(t, ts.URL)

	rec := &eventRecorder{}

	err := Run(context.Background(), &Options{ConfigPath: settingsPath, InstallOnly: true, Events: rec.sink})
	require.NoError(t, err)

	require.True(t, rec.has(InstalledEvent{}))
	require.False(t, rec.has(LaunchedEvent{}))

	installed, err := Installed(context.Background(), settingsPath)
	require.NoError(t, err)
	require.NotNil(t, installed)
}

// TestRunSurfacesCrash propagates a non-zero game exit as a CrashError.
func TestRunSurfacesCrash(t *testing.T) {
	ts := newReleaseServer(t, []byte("#!/bin/sh\nexit 2\n"))
	settingsPath := setupEnvironment(t, ts.URL)

	err := Run(context.Background(), &Options{ConfigPath: settingsPath})

	var crash *release.CrashError
	require.ErrorAs(t, err, &crash)
	require.Equal(t, 2, crash.ExitCode)
}

// TestRunDegradesWhenCheckFails launches the installed release when the
// remote is unreachable, unless StrictUpdate is set.
func TestRunDegradesWhenCheckFails(t *testing.T) {
	ts := newReleaseServer(t, []byte("#!/bin/sh\nexit 0\n"))
	settingsPath := setupEnvironment(t, ts.URL)

	ctx := context.Background()
	require.NoError(t, Run(ctx, &Options{ConfigPath: settingsPath, InstallOnly: true}))

	// The remote disappears after the first install.
	ts.Close()

	rec := &eventRecorder{}
	require.NoError(t, Run(ctx, &Options{ConfigPath: settingsPath, Events: rec.sink}))
	require.True(t, rec.has(FinishedEvent{}))

	err := Run(ctx, &Options{ConfigPath: settingsPath, StrictUpdate: true})
	require.ErrorIs(t, err, release.ErrNetwork)
}

// TestRunNothingInstalled fails a launch before any install exists.
func TestRunNothingInstalled(t *testing.T) {
	ts := newReleaseServer(t, []byte("#!/bin/sh\nexit 0\n"))
	settingsPath := setupEnvironment(t, ts.URL)

	err := Run(context.Background(), &Options{ConfigPath: settingsPath, SkipUpdate: true})
	require.ErrorIs(t, err, errNothingInstalled)
}

// TestUninstall removes the game and state but keeps settings by default.
func TestUninstall(t *testing.T) {
	ts := newReleaseServer(t, []byte("#!/bin/sh\nexit 0\n"))
	settingsPath := setupEnvironment(t, ts.URL)

	ctx := context.Background()
	require.NoError(t, Run(ctx, &Options{ConfigPath: settingsPath, InstallOnly: true}))

	installed, err := Installed(ctx, settingsPath)
	require.NoError(t, err)
	require.NotNil(t, installed)

	installDir := filepath.Dir(installed.Path)

	require.NoError(t, Uninstall(ctx, settingsPath, true))

	installed, err = Installed(ctx, settingsPath)
	require.NoError(t, err)
	require.Nil(t, installed)

	_, err = os.Stat(installDir)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(settingsPath)
	require.NoError(t, err)
}
