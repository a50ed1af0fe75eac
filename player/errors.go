package player

import "errors"

// Common errors for the playback engine.
var (
	// Transport errors
	ErrEngineUnavailable     = errors.New("no audio engine is available")
	ErrPlaybackLoadFailed    = errors.New("track failed to load")
	ErrPlaybackCommandFailed = errors.New("playback command failed")
	ErrNoTrackLoaded         = errors.New("no track is loaded")
	ErrTrackReplaced         = errors.New("track was replaced")

	// Content errors
	ErrNetworkFetchFailed = errors.New("remote fetch failed")
	ErrInvalidVerseTiming = errors.New("invalid verse timing")
	ErrChapterNotFound    = errors.New("chapter not found")

	// Coordinator errors
	ErrInvalidState    = errors.New("invalid state for operation")
	ErrStateTransition = errors.New("invalid state transition")
	ErrShutdown        = errors.New("engine has been shut down")
)

// IsRecoverable reports whether playback can continue after err. A
// user-initiated play retries the load from any recoverable error state.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrEngineUnavailable),
		errors.Is(err, ErrShutdown):
		return false
	}
	return true
}

// Severity classifies engine errors for logging and UI treatment.
type Severity int

const (
	// SeverityInfo is for informational conditions.
	SeverityInfo Severity = iota
	// SeverityWarning is for conditions that do not interrupt playback.
	SeverityWarning
	// SeverityError is for conditions that stop the current track.
	SeverityError
)

// Error carries component context across the event channel. Audio failures
// never surface synchronously into UI code; they arrive wrapped in one of
// these on the error stream.
type Error struct {
	Err       error
	Component string
	Action    string
	Severity  Severity
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Component + ": " + e.Action + ": " + e.Err.Error()
	}
	return e.Component + ": " + e.Action
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// IsRecoverable reports whether the wrapped error is recoverable.
func (e *Error) IsRecoverable() bool { return IsRecoverable(e.Err) }

// NewError wraps err with component and action context.
func NewError(err error, component, action string) *Error {
	return &Error{
		Err:       err,
		Component: component,
		Action:    action,
		Severity:  SeverityError,
	}
}

// WithSeverity sets the error severity.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}
