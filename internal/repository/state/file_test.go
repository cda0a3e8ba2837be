package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
)

// TestSaveLoadRoundtrip ensures the recorded release survives a restart exactly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(path)

	rel := &release.InstalledRelease{
		Version:     "1.2.0",
		Path:        "/data/game/tc2-1.2.0",
		InstalledAt: time.Unix(1700000000, 0).UTC(),
	}

	require.NoError(t, repo.Save(context.Background(), rel))

	// A fresh repository instance simulates a process restart.
	loaded, err := NewFileRepository(path).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, rel, loaded)
}

// TestLoadMissing returns ErrNotFound before the first save.
func TestLoadMissing(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

// TestLoadCorrupt surfaces a decode error rather than silently resetting state.
func TestLoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileRepository(path).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// TestSaveLeavesPriorStateOnCrash simulates an interrupted write: a leftover
// temp file must never shadow or corrupt the previously recorded state.
func TestSaveLeavesPriorStateOnCrash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	repo := NewFileRepository(path)

	prior := &release.InstalledRelease{Version: "1.0.0", Path: "/data/game/tc2-1.0.0"}
	require.NoError(t, repo.Save(context.Background(), prior))

	// A crash mid-write leaves a half-written temp file behind.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".state-crash.tmp"), []byte(`{"version":"9.9`), 0o600))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, prior.Version, loaded.Version)
}

// TestSaveNil rejects nil releases.
func TestSaveNil(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	require.Error(t, repo.Save(context.Background(), nil))
}

// TestSaveReplacesExisting verifies the latest save wins and no temp files leak.
func TestSaveReplacesExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	repo := NewFileRepository(path)

	require.NoError(t, repo.Save(context.Background(), &release.InstalledRelease{Version: "1.0.0"}))
	require.NoError(t, repo.Save(context.Background(), &release.InstalledRelease{Version: "1.1.0"}))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.1.0", loaded.Version)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
