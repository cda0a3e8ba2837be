package release

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"
)

// TestParseDigest verifies the "algo:hex" format and rejection of malformed inputs.
func TestParseDigest(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("artifact"))
	d, err := ParseDigest("sha256:" + hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	require.Equal(t, "sha256", d.Algo)
	require.True(t, d.Matches(sum[:]))
	require.False(t, d.Matches([]byte("other")))
	require.False(t, d.IsZero())

	for _, bad := range []string{"", "sha256", "sha256:", ":abcd", "sha256:zz"} {
		_, err = ParseDigest(bad)
		require.Error(t, err, bad)
		require.ErrorIs(t, err, ErrParse)
	}

	require.True(t, Digest{}.IsZero())
}

// TestDigestString ensures String round-trips through ParseDigest.
func TestDigestString(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("x"))
	d := Digest{Algo: "sha256", Sum: sum[:]}

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	require.Equal(t, d, parsed)
}

// TestInstalledReleaseClone verifies deep copy and nil safety.
func TestInstalledReleaseClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*InstalledRelease)(nil).Clone())

	r := &InstalledRelease{
		Version:     "1.2.0",
		Path:        "/data/game/tc2-1.2.0",
		InstalledAt: time.Unix(100, 0),
	}

	c := r.Clone()
	require.Equal(t, r, c)
	require.NotSame(t, r, c)
}

// TestInstalledReleaseSemVer checks version parsing including the "v" prefix.
func TestInstalledReleaseSemVer(t *testing.T) {
	t.Parallel()

	r := &InstalledRelease{Version: "v1.2.0"}

	v, err := r.SemVer()
	require.NoError(t, err)
	require.True(t, v.Equal(semver.MustParse("1.2.0")))

	r.Version = "not-a-version"
	_, err = r.SemVer()
	require.ErrorIs(t, err, ErrParse)
}

// TestErrorTaxonomy exercises errors.Is/As discrimination across the typed errors.
func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	var integrity *IntegrityError

	wrapped := error(&IntegrityError{Field: "checksum", Want: "a", Got: "b"})
	require.True(t, errors.As(wrapped, &integrity))
	require.Contains(t, integrity.Error(), "checksum")

	var disk *DiskError

	cause := errors.New("no space left on device")
	wrapped = &DiskError{Op: "write artifact", Err: cause}
	require.True(t, errors.As(wrapped, &disk))
	require.ErrorIs(t, wrapped, cause)

	var crash *CrashError

	wrapped = &CrashError{ExitCode: 3}
	require.True(t, errors.As(wrapped, &crash))
	require.Contains(t, crash.Error(), "3")

	crash = &CrashError{ExitCode: -1, Signal: "killed"}
	require.Contains(t, crash.Error(), "killed")
}

// TestSessionState verifies terminal-state classification and string rendering.
func TestSessionState(t *testing.T) {
	t.Parallel()

	require.False(t, SessionCreated.Terminal())
	require.False(t, SessionRunning.Terminal())
	require.True(t, SessionExited.Terminal())
	require.True(t, SessionCrashed.Terminal())
	require.True(t, SessionCancelled.Terminal())

	require.Equal(t, "running", SessionRunning.String())
	require.Equal(t, "cancelled", SessionCancelled.String())
}
