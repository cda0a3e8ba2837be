// Package fetcher downloads release artifacts to local storage and installs
// them atomically. Downloads resume from a partial file via HTTP range
// requests, transport failures are retried with capped exponential backoff,
// and nothing replaces the installed release until the new artifact has been
// fully verified against the manifest.
package fetcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
	"github.com/mastercomfig/tc2-launcher/internal/logger"
)

const (
	// defaultMaxAttempts bounds the retry budget for transport failures.
	defaultMaxAttempts = 4

	// defaultBaseBackoff is the delay before the first retry; it doubles
	// per attempt up to maxBackoff.
	defaultBaseBackoff = 500 * time.Millisecond
	maxBackoff         = 8 * time.Second

	// partialDirName holds in-flight downloads inside the install dir, so
	// the final rename never crosses a filesystem boundary.
	partialDirName = ".partial"

	// artifactMode makes installed binaries executable.
	artifactMode os.FileMode = 0o755

	// defaultBaseName prefixes installed artifact filenames.
	defaultBaseName = "tc2"

	userAgent = "TC2Launcher"
)

// ProgressFunc receives one-way transfer notifications: bytes on disk so far
// and the expected total. Implementations must not block.
type ProgressFunc func(transferred, total int64)

// Fetcher downloads and installs release artifacts.
type Fetcher struct {
	// installDir is where verified artifacts are placed.
	installDir string
	// baseName prefixes artifact filenames, e.g. "tc2" -> "tc2-1.2.0".
	baseName string
	// client performs HTTP requests.
	client *http.Client
	// maxAttempts and baseBackoff define the retry budget.
	maxAttempts int
	baseBackoff time.Duration
	// progress receives transfer notifications, may be nil.
	progress ProgressFunc
}

// Option configures fetcher behaviour.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithProgress registers a transfer notification callback.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Fetcher) {
		f.progress = fn
	}
}

// WithRetryBudget overrides the transport retry budget.
func WithRetryBudget(attempts int, base time.Duration) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.maxAttempts = attempts
		}

		if base > 0 {
			f.baseBackoff = base
		}
	}
}

// WithBaseName overrides the artifact filename prefix.
func WithBaseName(name string) Option {
	return func(f *Fetcher) {
		if name != "" {
			f.baseName = name
		}
	}
}

// New creates a fetcher installing into the provided directory.
func New(installDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		installDir:  installDir,
		baseName:    defaultBaseName,
		client:      http.DefaultClient,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// InstallPath returns the location a given version is installed to.
func (f *Fetcher) InstallPath(version string) string {
	name := f.baseName + "-" + version
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	return filepath.Join(f.installDir, name)
}

// partialPath returns the in-flight download location for a version.
func (f *Fetcher) partialPath(version string) string {
	return filepath.Join(f.installDir, partialDirName, f.baseName+"-"+version+".part")
}

// Fetch downloads the manifest's artifact, verifies its size and checksum,
// and atomically moves it into place. The previously installed release is
// never touched; callers retire it explicitly after persisting new state.
func (f *Fetcher) Fetch(ctx context.Context, m *release.Manifest) (*release.InstalledRelease, error) {
	if m == nil || m.Version == nil || m.DownloadURL == "" || m.Size <= 0 || m.Checksum.IsZero() {
		return nil, fmt.Errorf("incomplete manifest: %w", release.ErrParse)
	}

	version := m.Version.String()
	part := f.partialPath(version)

	if err := os.MkdirAll(filepath.Dir(part), 0o755); err != nil {
		return nil, &release.DiskError{Op: "create download directory", Err: err}
	}

	if err := f.download(ctx, m, part); err != nil {
		return nil, err
	}

	if err := f.verify(ctx, m, part); err != nil {
		return nil, err
	}

	if err := os.Chmod(part, artifactMode); err != nil {
		return nil, &release.DiskError{Op: "mark artifact executable", Err: err}
	}

	final := f.InstallPath(version)
	if err := os.Rename(part, final); err != nil {
		return nil, &release.DiskError{Op: "install artifact", Err: err}
	}

	logger.InfoKV(ctx, "Artifact installed", "version", version, "path", final)

	return &release.InstalledRelease{
		Version:     version,
		Path:        final,
		InstalledAt: time.Now().UTC(),
	}, nil
}

// Retire removes the binary of a superseded release. Best effort: the new
// release is already installed and recorded, so failures only leak a file.
func (f *Fetcher) Retire(ctx context.Context, prior, current *release.InstalledRelease) {
	if prior == nil || prior.Path == "" {
		return
	}

	if current != nil && prior.Path == current.Path {
		return
	}

	if err := os.Remove(prior.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove superseded release", "path", prior.Path, "error", err)
		return
	}

	logger.InfoKV(ctx, "Removed superseded release", "version", prior.Version, "path", prior.Path)
}

// download runs attempts until the partial file holds the full artifact.
// Only transport failures consume the retry budget; integrity, disk and
// cancellation errors surface immediately.
func (f *Fetcher) download(ctx context.Context, m *release.Manifest, part string) error {
	var lastErr error

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt, f.baseBackoff); err != nil {
				return err
			}
		}

		err := f.downloadOnce(ctx, m, part)
		if err == nil {
			return nil
		}

		if !errors.Is(err, release.ErrNetwork) {
			return err
		}

		lastErr = err

		logger.WarnKV(ctx, "Download attempt failed",
			"attempt", attempt+1, "max_attempts", f.maxAttempts, "error", err)
	}

	return fmt.Errorf("retry budget exhausted: %w", lastErr)
}

// downloadOnce performs a single transfer, resuming from an existing partial
// file when the server honors range requests.
func (f *Fetcher) downloadOnce(ctx context.Context, m *release.Manifest, part string) error {
	var offset int64
	if info, err := os.Stat(part); err == nil {
		offset = info.Size()
	}

	// A partial larger than the manifest belongs to a different artifact.
	if offset > m.Size {
		if err := os.Remove(part); err != nil {
			return &release.DiskError{Op: "discard stale partial file", Err: err}
		}

		offset = 0
	}

	f.report(offset, m.Size)

	// A previous attempt may have completed the transfer before failing
	// elsewhere; verification decides whether the bytes are good.
	if offset == m.Size {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.DownloadURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("download aborted: %w", context.Cause(ctx))
		}

		return fmt.Errorf("download %s: %v: %w", m.DownloadURL, err, release.ErrNetwork)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Continue appending to the partial file.
	case http.StatusOK:
		if offset > 0 {
			logger.Info(ctx, "Server does not support range requests, restarting download")

			offset = 0

			f.report(offset, m.Size)
		}
	default:
		return fmt.Errorf("download %s, %s: %w", m.DownloadURL, resp.Status, release.ErrNetwork)
	}

	return f.writeBody(ctx, resp.Body, part, offset, m.Size)
}

// writeBody streams the response body into the partial file, counting bytes
// for progress and separating disk failures from transport failures.
func (f *Fetcher) writeBody(ctx context.Context, body io.Reader, part string, offset, total int64) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 {
		flags = os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(part, flags, 0o644)
	if err != nil {
		return &release.DiskError{Op: "open partial file", Err: err}
	}

	sink := &trackingWriter{w: file}
	counter := &progressCounter{transferred: offset, total: total, report: f.report}

	_, copyErr := io.Copy(sink, io.TeeReader(body, counter))
	closeErr := file.Close()

	if sink.err != nil {
		return &release.DiskError{Op: "write partial file", Err: sink.err}
	}

	if copyErr != nil {
		if errors.Is(copyErr, context.Canceled) || errors.Is(copyErr, context.DeadlineExceeded) {
			return fmt.Errorf("download aborted: %w", context.Cause(ctx))
		}

		return fmt.Errorf("transfer interrupted: %v: %w", copyErr, release.ErrNetwork)
	}

	if closeErr != nil {
		return &release.DiskError{Op: "close partial file", Err: closeErr}
	}

	return nil
}

// verify checks byte count and checksum of the downloaded artifact against
// the manifest. On mismatch the partial file is discarded.
func (f *Fetcher) verify(ctx context.Context, m *release.Manifest, part string) error {
	if m.Checksum.Algo != "sha256" {
		return fmt.Errorf("unsupported digest algorithm %q: %w", m.Checksum.Algo, release.ErrParse)
	}

	info, err := os.Stat(part)
	if err != nil {
		return &release.DiskError{Op: "stat downloaded artifact", Err: err}
	}

	if info.Size() != m.Size {
		f.discard(ctx, part)

		return &release.IntegrityError{
			Field: "size",
			Want:  strconv.FormatInt(m.Size, 10),
			Got:   strconv.FormatInt(info.Size(), 10),
		}
	}

	file, err := os.Open(part)
	if err != nil {
		return &release.DiskError{Op: "open downloaded artifact", Err: err}
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return &release.DiskError{Op: "hash downloaded artifact", Err: err}
	}

	sum := hasher.Sum(nil)
	if !m.Checksum.Matches(sum) {
		f.discard(ctx, part)

		return &release.IntegrityError{
			Field: "checksum",
			Want:  m.Checksum.String(),
			Got:   release.Digest{Algo: "sha256", Sum: sum}.String(),
		}
	}

	return nil
}

// discard removes a partial file that failed verification.
func (f *Fetcher) discard(ctx context.Context, part string) {
	if err := os.Remove(part); err != nil {
		logger.WarnKV(ctx, "Unable to discard partial file", "path", part, "error", err)
	}
}

// report forwards a progress notification when a callback is registered.
func (f *Fetcher) report(transferred, total int64) {
	if f.progress != nil {
		f.progress(transferred, total)
	}
}

// trackingWriter records the first write error so disk failures can be told
// apart from read-side transport failures after io.Copy.
type trackingWriter struct {
	w   io.Writer
	err error
}

// Write implements io.Writer.
func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}

	return n, err
}

// progressCounter counts transferred bytes and reports them downstream.
type progressCounter struct {
	transferred int64
	total       int64
	report      ProgressFunc
}

// Write implements io.Writer for use with io.TeeReader.
func (c *progressCounter) Write(p []byte) (int, error) {
	c.transferred += int64(len(p))

	if c.report != nil {
		c.report(c.transferred, c.total)
	}

	return len(p), nil
}

// sleepBackoff waits the capped exponential delay for the given attempt,
// aborting early on context cancellation.
func sleepBackoff(ctx context.Context, attempt int, base time.Duration) error {
	delay := base << (attempt - 1)
	if delay > maxBackoff {
		delay = maxBackoff
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("download aborted: %w", context.Cause(ctx))
	case <-timer.C:
		return nil
	}
}
