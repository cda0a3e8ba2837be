package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mastercomfig/tc2-launcher/internal/config"
	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
)

// Repository defines persistence operations for the installed release record.
type Repository interface {
	Load(ctx context.Context) (*release.InstalledRelease, error)
	Save(ctx context.Context, rel *release.InstalledRelease) error
}

// FileRepository persists the installed release to a JSON file on disk.
// Saves go through a temp file in the same directory followed by a rename,
// so a crash mid-write never corrupts the previously recorded state.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu serializes writes under the single-writer assumption.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// errReleaseNotSet is returned when Save is called with a nil release.
var errReleaseNotSet = errors.New("release is not set")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the installed release from disk.
func (r *FileRepository) Load(_ context.Context) (*release.InstalledRelease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var rel release.InstalledRelease
	if err = json.Unmarshal(contents, &rel); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &rel, nil
}

// Save atomically writes the installed release to disk.
func (r *FileRepository) Save(_ context.Context, rel *release.InstalledRelease) error {
	if rel == nil {
		return errReleaseNotSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(rel, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	// The temp file must live in the same directory so the rename stays
	// within one filesystem and remains atomic.
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".state-*.tmp")
	if err != nil {
		return &release.DiskError{Op: "create state temp file", Err: err}
	}

	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return &release.DiskError{Op: "write state temp file", Err: err}
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return &release.DiskError{Op: "sync state temp file", Err: err}
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return &release.DiskError{Op: "close state temp file", Err: err}
	}

	if err = os.Chmod(tmpName, config.DefaultFilePermissions); err != nil {
		_ = os.Remove(tmpName)

		return &release.DiskError{Op: "chmod state temp file", Err: err}
	}

	if err = os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)

		return &release.DiskError{Op: "replace state file", Err: err}
	}

	return nil
}
