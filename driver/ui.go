package driver

import (
	"context"
	"time"
)

// Document is the window's current document.
type Document interface {
	// QuerySelector returns the first match in document order, or a nil
	// Element and nil error when nothing matches.
	QuerySelector(ctx context.Context, selector string) (Element, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
	Title(ctx context.Context) (string, error)
	// ActiveElement returns the focused element, or nil.
	ActiveElement(ctx context.Context) (Element, error)
}

// Element is one live UI node. Caret positions are rune indexes into
// Value.
type Element interface {
	Describe(ctx context.Context) (Description, error)
	// Children returns element children in document order.
	Children(ctx context.Context) ([]Element, error)
	// Parent returns the parent element, or nil at the root.
	Parent(ctx context.Context) (Element, error)
	// OffsetParent returns the layout offset parent, or nil.
	OffsetParent(ctx context.Context) (Element, error)
	Box(ctx context.Context) (Box, error)
	SameAs(ctx context.Context, other Element) (bool, error)

	Value(ctx context.Context) (string, error)
	SetValue(ctx context.Context, value string) error
	SelectionStart(ctx context.Context) (int, error)
	SetSelectionRange(ctx context.Context, start, end int) error
	DispatchEvent(ctx context.Context, ev Event) error

	// Terminal returns the emulator attached to the element, or nil.
	Terminal(ctx context.Context) (Terminal, error)
}

// Description is the static part of an element.
type Description struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  []Attribute
}

// Attribute is one name/value pair in source order.
type Attribute struct {
	Name  string
	Value string
}

// Box holds the layout metrics of an element, in CSS pixels.
type Box struct {
	OffsetLeft   float64
	OffsetTop    float64
	ClientLeft   float64
	ClientTop    float64
	ClientWidth  float64
	ClientHeight float64
}

// Event is a synthetic DOM event.
type Event struct {
	Type       string
	Bubbles    bool
	Cancelable bool
}

// InputEvent is the change notification sent after every mutation.
var InputEvent = Event{Type: "input", Bubbles: true, Cancelable: true}

// Terminal is an embedded terminal emulator.
type Terminal interface {
	// BufferLines returns the buffered display lines top to bottom, as
	// plain text.
	BufferLines(ctx context.Context) ([]string, error)
	// Input feeds text into the terminal as if typed.
	Input(ctx context.Context, text string) error
}

// MouseEventType is the phase of a synthetic mouse event.
type MouseEventType string

const (
	MouseDown MouseEventType = "mouseDown"
	MouseUp   MouseEventType = "mouseUp"
)

// MouseButton names a mouse button.
type MouseButton string

const ButtonLeft MouseButton = "left"

// MouseEvent is sent to the InputSynthesizer in window coordinates.
type MouseEvent struct {
	Type       MouseEventType
	X          int
	Y          int
	Button     MouseButton
	ClickCount int
}

// InputSynthesizer injects input events into the window.
type InputSynthesizer interface {
	SendInputEvent(ctx context.Context, ev MouseEvent) error
}

// DevToolsOptions is passed to WindowController.OpenDevTools.
type DevToolsOptions struct {
	// Mode is "detach", "right", "bottom" or "undocked".
	Mode string `json:"mode"`
}

// WindowController controls the host window.
type WindowController interface {
	OpenDevTools(ctx context.Context, opts DevToolsOptions) error
}

// Scheduler provides the delays of the click sequence.
type Scheduler interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealScheduler sleeps on the wall clock.
type RealScheduler struct{}

// Sleep waits for d or until ctx is done.
func (RealScheduler) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
