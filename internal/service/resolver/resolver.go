// Package resolver implements the update check against the remote release
// authority (the GitHub releases API). Resolving is read-only, idempotent
// and safe to retry.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
	"github.com/mastercomfig/tc2-launcher/internal/logger"
)

const (
	// ChannelPrerelease selects the newest release including prereleases.
	// Any other non-empty channel value pins a concrete release tag.
	ChannelPrerelease = "prerelease"

	// defaultEndpoint is the production release API base URL.
	defaultEndpoint = "https://api.github.com"

	// defaultTimeout bounds a single resolve request.
	defaultTimeout = 30 * time.Second

	acceptHeader     = "application/vnd.github+json"
	apiVersionHeader = "2022-11-28"
	userAgent        = "TC2Launcher"
)

// githubRelease is the subset of the releases API response the launcher needs.
type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Prerelease bool          `json:"prerelease"`
	Assets     []githubAsset `json:"assets"`
}

// githubAsset describes one downloadable artifact of a release.
type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"`
}

// Resolver queries the release API for the newest version of a repository.
type Resolver struct {
	// repo is the "owner/name" repository slug.
	repo string
	// channel selects the release stream, see ChannelPrerelease.
	channel string
	// endpoint is the API base URL.
	endpoint string
	// client performs HTTP requests.
	client *http.Client
}

// Option configures resolver behaviour.
type Option func(*Resolver)

// WithChannel selects a release channel (prerelease or a pinned tag).
func WithChannel(channel string) Option {
	return func(r *Resolver) {
		r.channel = strings.TrimSpace(channel)
	}
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(r *Resolver) {
		if endpoint != "" {
			r.endpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

// WithTimeout bounds each resolve request.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.client.Timeout = timeout
		}
	}
}

// New creates a resolver for the provided repository slug.
func New(repo string, opts ...Option) *Resolver {
	r := &Resolver{
		repo:     repo,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve fetches the release selected by the channel and maps its platform
// asset into a Manifest. Transport failures wrap release.ErrNetwork;
// malformed responses wrap release.ErrParse. No side effects.
func (r *Resolver) Resolve(ctx context.Context) (*release.Manifest, error) {
	rel, err := r.selectRelease(ctx)
	if err != nil {
		return nil, err
	}

	return manifestFromRelease(rel)
}

// UpdateAvailable reports whether the manifest should replace the installed
// release. A pinned channel installs any version difference (including
// downgrades, to honor the pin); otherwise only strictly newer versions count.
// An unreadable local version always forces an update.
func (r *Resolver) UpdateAvailable(ctx context.Context, m *release.Manifest, installed *release.InstalledRelease) bool {
	if installed == nil {
		return true
	}

	iv, err := installed.SemVer()
	if err != nil {
		logger.Warnf(ctx, "Installed version is unreadable, forcing update: %v", err)
		return true
	}

	if r.pinned() {
		return !m.Version.Equal(iv)
	}

	return m.Version.GreaterThan(iv)
}

// pinned reports whether the channel pins a concrete tag.
func (r *Resolver) pinned() bool {
	return r.channel != "" && r.channel != ChannelPrerelease
}

// selectRelease picks the release according to the configured channel.
// A missing pinned tag falls back to the latest release.
func (r *Resolver) selectRelease(ctx context.Context) (*githubRelease, error) {
	switch {
	case r.channel == ChannelPrerelease:
		var releases []githubRelease
		if err := r.getJSON(ctx, fmt.Sprintf("%s/repos/%s/releases?per_page=1", r.endpoint, r.repo), &releases); err != nil {
			return nil, err
		}

		if len(releases) == 0 {
			return nil, fmt.Errorf("no releases published for %s: %w", r.repo, release.ErrParse)
		}

		return &releases[0], nil
	case r.pinned():
		var rel githubRelease

		err := r.getJSON(ctx, fmt.Sprintf("%s/repos/%s/releases/tags/%s", r.endpoint, r.repo, r.channel), &rel)
		if err == nil {
			return &rel, nil
		}

		logger.Warnf(ctx, "Pinned release %q unavailable, falling back to latest: %v", r.channel, err)
	}

	var rel githubRelease
	if err := r.getJSON(ctx, fmt.Sprintf("%s/repos/%s/releases/latest", r.endpoint, r.repo), &rel); err != nil {
		return nil, err
	}

	return &rel, nil
}

// getJSON performs an authenticated-style API request and decodes the response.
func (r *Resolver) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", url, err, release.ErrNetwork)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", url, resp.Status, release.ErrNetwork)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %v: %w", err, release.ErrNetwork)
	}

	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode release response: %v: %w", err, release.ErrParse)
	}

	return nil
}

// manifestFromRelease validates the release and maps the platform asset
// into the immutable Manifest consumed by the fetcher.
func manifestFromRelease(rel *githubRelease) (*release.Manifest, error) {
	tag := strings.TrimPrefix(rel.TagName, "v")
	if tag == "" {
		return nil, fmt.Errorf("release has no tag: %w", release.ErrParse)
	}

	version, err := semver.NewVersion(tag)
	if err != nil {
		return nil, fmt.Errorf("release tag %q: %v: %w", rel.TagName, err, release.ErrParse)
	}

	asset := findAsset(rel.Assets)
	if asset == nil {
		return nil, fmt.Errorf("no asset for platform %s/%s: %w", runtime.GOOS, runtime.GOARCH, release.ErrParse)
	}

	if asset.Digest == "" {
		return nil, fmt.Errorf("asset %s has no digest: %w", asset.Name, release.ErrParse)
	}

	digest, err := release.ParseDigest(asset.Digest)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", asset.Name, err)
	}

	if asset.Size <= 0 {
		return nil, fmt.Errorf("asset %s has no size: %w", asset.Name, release.ErrParse)
	}

	if asset.BrowserDownloadURL == "" {
		return nil, fmt.Errorf("asset %s has no download URL: %w", asset.Name, release.ErrParse)
	}

	return &release.Manifest{
		Version:     version,
		DownloadURL: asset.BrowserDownloadURL,
		Checksum:    digest,
		Size:        asset.Size,
	}, nil
}

// findAsset selects the artifact for the current platform. Assets carrying
// both the OS and architecture tokens win over OS-only matches.
func findAsset(assets []githubAsset) *githubAsset {
	osTokens := platformTokens()
	arch := runtime.GOARCH

	for i := range assets {
		name := strings.ToLower(assets[i].Name)
		if containsAny(name, osTokens) && strings.Contains(name, arch) {
			return &assets[i]
		}
	}

	for i := range assets {
		if containsAny(strings.ToLower(assets[i].Name), osTokens) {
			return &assets[i]
		}
	}

	return nil
}

// platformTokens lists the substrings release assets use to mark the OS.
func platformTokens() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"windows", "win"}
	case "darwin":
		return []string{"darwin", "macos", "mac"}
	default:
		return []string{runtime.GOOS}
	}
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}

	return false
}
