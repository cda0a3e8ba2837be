package release

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Manifest describes the latest release advertised by the remote authority.
// It is immutable once resolved.
type Manifest struct {
	// Version is the semantic version of the release.
	Version *semver.Version
	// DownloadURL locates the platform artifact.
	DownloadURL string
	// Checksum is the expected digest of the artifact.
	Checksum Digest
	// Size is the artifact size in bytes.
	Size int64
}

// Digest is an algorithm-qualified artifact checksum.
type Digest struct {
	// Algo is the hash algorithm name, e.g. "sha256".
	Algo string
	// Sum is the raw digest bytes.
	Sum []byte
}

// ParseDigest parses the "algo:hex" form used by release asset metadata.
func ParseDigest(s string) (Digest, error) {
	algo, hexSum, ok := strings.Cut(s, ":")
	if !ok || algo == "" || hexSum == "" {
		return Digest{}, fmt.Errorf("digest %q: %w", s, ErrParse)
	}

	sum, err := hex.DecodeString(hexSum)
	if err != nil {
		return Digest{}, fmt.Errorf("digest %q: %w", s, ErrParse)
	}

	return Digest{Algo: algo, Sum: sum}, nil
}

// String renders the digest back into "algo:hex" form.
func (d Digest) String() string {
	return d.Algo + ":" + hex.EncodeToString(d.Sum)
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d.Algo == "" && len(d.Sum) == 0
}

// Matches reports whether the provided raw sum equals the digest.
func (d Digest) Matches(sum []byte) bool {
	return bytes.Equal(d.Sum, sum)
}

// InstalledRelease records the locally installed version of the game.
// At most one release is current at a time; it is replaced only after a
// new artifact has been fully verified.
type InstalledRelease struct {
	// Version is the semantic version string of the installed release.
	Version string `json:"version"`
	// Path is the absolute path of the installed binary.
	Path string `json:"path"`
	// InstalledAt is when the release was installed.
	InstalledAt time.Time `json:"installed_at"`
}

// Clone returns a copy of the release to avoid leaking internal references.
func (r *InstalledRelease) Clone() *InstalledRelease {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}

// SemVer parses the installed version string.
func (r *InstalledRelease) SemVer() (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(r.Version, "v"))
	if err != nil {
		return nil, fmt.Errorf("installed version %q: %w", r.Version, ErrParse)
	}

	return v, nil
}
