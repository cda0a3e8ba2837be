package launcher

import "github.com/mastercomfig/tc2-launcher/internal/domain/release"

// Event is a one-way notification for the front end. Events are plain data;
// the core never waits on their consumers.
type Event interface {
	event()
}

// Sink consumes events. Implementations must not block.
type Sink func(Event)

// UpdateAvailableEvent reports that a newer release was resolved.
type UpdateAvailableEvent struct {
	// Current is the installed version, empty on a first install.
	Current string
	// Available is the resolved remote version.
	Available string
}

// UpToDateEvent reports that the installed release is already current.
type UpToDateEvent struct {
	// Version is the installed version.
	Version string
}

// ProgressEvent reports download progress.
type ProgressEvent struct {
	// Transferred is the number of bytes on disk so far.
	Transferred int64
	// Total is the expected artifact size in bytes.
	Total int64
}

// Percent returns the completed fraction in the range 0 to 100.
func (e ProgressEvent) Percent() float64 {
	if e.Total <= 0 {
		return 0
	}

	return float64(e.Transferred) / float64(e.Total) * 100
}

// InstalledEvent reports a completed install.
type InstalledEvent struct {
	// Version is the installed version.
	Version string
	// Path is the installed binary location.
	Path string
}

// LaunchedEvent reports that the game process started.
type LaunchedEvent struct {
	// SessionID identifies the launch session.
	SessionID string
	// PID is the game process identifier.
	PID int
}

// FinishedEvent reports the terminal outcome of a launch session.
type FinishedEvent struct {
	// Status is the terminal exit status.
	Status release.ExitStatus
}

func (UpdateAvailableEvent) event() {}

func (UpToDateEvent) event() {}

func (ProgressEvent) event() {}

func (InstalledEvent) event() {}

func (LaunchedEvent) event() {}

func (FinishedEvent) event() {}
