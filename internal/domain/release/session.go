package release

// SessionState is the lifecycle state of a launch session.
// Created -> Running -> {Exited | Crashed | Cancelled}; terminal states are final.
type SessionState int

const (
	// SessionCreated means the session exists but the process has not started.
	SessionCreated SessionState = iota
	// SessionRunning means the game process is alive.
	SessionRunning
	// SessionExited means the process exited on its own.
	SessionExited
	// SessionCrashed means the process was terminated by a signal.
	SessionCrashed
	// SessionCancelled means the caller cancelled the session.
	SessionCancelled
)

// String renders the state for logs.
func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionRunning:
		return "running"
	case SessionExited:
		return "exited"
	case SessionCrashed:
		return "crashed"
	case SessionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s SessionState) Terminal() bool {
	return s == SessionExited || s == SessionCrashed || s == SessionCancelled
}

// ExitStatus is the terminal outcome of a launch session.
type ExitStatus struct {
	// State is the terminal session state.
	State SessionState
	// Code is the exit code for SessionExited, -1 otherwise.
	Code int
	// Signal is the terminating signal name for SessionCrashed.
	Signal string
}
