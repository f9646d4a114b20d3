package event

import "errors"

// Sentinel errors for the event handler.
var (
	// ErrNilListener is returned when a nil listener is registered.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrEmptyType is returned when registering without an event type.
	ErrEmptyType = errors.New("event type cannot be empty")

	// ErrTypeNotAllowed is returned when the event config excludes a type.
	ErrTypeNotAllowed = errors.New("event type not allowed")
)

// ListenerError wraps a failure returned by a listener.
type ListenerError struct {
	// ID is the registration that failed.
	ID string

	// Type is the event type being dispatched.
	Type Type

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return "listener " + e.ID + " for " + string(e.Type) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}
