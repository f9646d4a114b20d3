// Package event binds device input to scene items and dispatches typed
// events to registered listeners.
//
// # Flow
//
// Input arrives as an Event in container coordinates. The Handler
// subtracts the view origin, hit-tests the scene graph to find the
// topmost item under the pointer, updates hover state (synthesising
// mouseover and mouseout, and driving the tooltip handler), applies the
// prevent-default policy, and finally invokes the listeners registered for
// the event type in registration order.
//
//	input ──▶ Handler.Dispatch ──▶ hit test ──▶ hover/tooltip ──▶ listeners
//
// # Listeners
//
// Listeners are stored in a Registry keyed by event type. Each
// registration carries a generated ID and an optional opaque back-reference
// to whatever the caller registered, so callers can later find the exact
// registration they created.
//
// Listener failures are returned from Dispatch, joined. Callers that need
// isolation wrap their listeners before registering them; the dispatch
// subpackage provides an executor with panic recovery for that.
//
// # Terminal input
//
// TcellTranslator converts tcell mouse, key and resize events into
// Events, synthesising pointerdown, pointerup and click from button state.
package event
