package release

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transient transport failures. Callers retry these
	// with backoff up to a cap before surfacing them.
	ErrNetwork = errors.New("remote unreachable")

	// ErrParse marks malformed or incomplete manifest data. Not retriable.
	ErrParse = errors.New("malformed manifest")

	// ErrCancelled is returned when a launch session is cancelled by the caller.
	ErrCancelled = errors.New("launch cancelled")
)

// IntegrityError reports a mismatch between the manifest and the downloaded
// artifact. The temporary download is discarded and nothing is installed.
type IntegrityError struct {
	// Field names the property that mismatched: "size" or "checksum".
	Field string
	// Want is the expected value from the manifest.
	Want string
	// Got is the observed value of the downloaded artifact.
	Got string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("artifact %s mismatch: want %s, got %s", e.Field, e.Want, e.Got)
}

// DiskError reports a filesystem failure (space, permissions) during install
// or state persistence. Not retriable.
type DiskError struct {
	// Op is the failing operation, e.g. "create partial file".
	Op string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DiskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is checks.
func (e *DiskError) Unwrap() error {
	return e.Err
}

// CrashError reports abnormal termination of the launched game process.
// The core never restarts the process itself; that decision belongs to the caller.
type CrashError struct {
	// ExitCode is the process exit code, or -1 when terminated by a signal.
	ExitCode int
	// Signal is the terminating signal name, empty for plain non-zero exits.
	Signal string
}

// Error implements the error interface.
func (e *CrashError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("game terminated by signal %s", e.Signal)
	}

	return fmt.Sprintf("game exited with code %d", e.ExitCode)
}
