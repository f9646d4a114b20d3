package view

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned synchronously and indicate a
// programming mistake at the call site.
var (
	// ErrUnknownSignal indicates a signal name absent from the view.
	ErrUnknownSignal = errors.New("unrecognized signal name")

	// ErrUnknownRenderer indicates a renderer type with no registered module.
	ErrUnknownRenderer = errors.New("unrecognized renderer type")

	// ErrUnknownDataset indicates a data set name absent from the view.
	ErrUnknownDataset = errors.New("unrecognized data set name")

	// ErrNilListener is returned when registering a nil listener.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrFinalized is returned by operations after Finalize.
	ErrFinalized = errors.New("view is finalized")
)

// SignalError names the signal a lookup failed for.
type SignalError struct {
	Name string
}

// Error implements the error interface.
func (e *SignalError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownSignal, e.Name)
}

// Unwrap returns ErrUnknownSignal.
func (e *SignalError) Unwrap() error {
	return ErrUnknownSignal
}

// RendererError names the rejected renderer type.
type RendererError struct {
	Type string
}

// Error implements the error interface.
func (e *RendererError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownRenderer, e.Type)
}

// Unwrap returns ErrUnknownRenderer.
func (e *RendererError) Unwrap() error {
	return ErrUnknownRenderer
}

// DataError names the data set a lookup failed for.
type DataError struct {
	Name string
}

// Error implements the error interface.
func (e *DataError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownDataset, e.Name)
}

// Unwrap returns ErrUnknownDataset.
func (e *DataError) Unwrap() error {
	return ErrUnknownDataset
}

// RenderError reports a failure while painting. Panics are converted to a
// *dispatch.PanicError cause.
type RenderError struct {
	Renderer string
	Err      error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Renderer, e.Err)
}

// Unwrap returns the cause.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// ListenerKind identifies the registry a failing listener belongs to.
type ListenerKind string

const (
	KindEvent  ListenerKind = "event"
	KindSignal ListenerKind = "signal"
	KindResize ListenerKind = "resize"
)

// ListenerError reports a failure inside a trapped user callback.
type ListenerError struct {
	Kind ListenerKind
	// Name is the event type or signal name.
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("%s listener %s: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the cause.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// DataLoadError reports a data set whose URL could not be loaded or
// parsed.
type DataLoadError struct {
	Name string
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *DataLoadError) Error() string {
	return fmt.Sprintf("data %q from %s: %v", e.Name, e.URL, e.Err)
}

// Unwrap returns the cause.
func (e *DataLoadError) Unwrap() error {
	return e.Err
}
