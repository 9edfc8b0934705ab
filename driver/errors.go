package driver

import "fmt"

// ErrElementNotFound is returned when a selector matches nothing.
type ErrElementNotFound struct {
	Selector string `json:"selector"`
}

func (e *ErrElementNotFound) Error() string {
	return fmt.Sprintf("driver: element not found: %s", e.Selector)
}

func (e *ErrElementNotFound) Code() string { return "ElementNotFound" }

// ErrEditorNotFound is returned by TypeInEditor when the selector misses.
type ErrEditorNotFound struct {
	Selector string `json:"selector"`
}

func (e *ErrEditorNotFound) Error() string {
	return fmt.Sprintf("driver: editor not found: %s", e.Selector)
}

func (e *ErrEditorNotFound) Code() string { return "EditorNotFound" }

// ErrTerminalNotFound is returned when the element has no terminal attached.
type ErrTerminalNotFound struct {
	Selector string `json:"selector"`
}

func (e *ErrTerminalNotFound) Error() string {
	return fmt.Sprintf("driver: terminal not found: %s", e.Selector)
}

func (e *ErrTerminalNotFound) Code() string { return "TerminalNotFound" }

// ErrActiveElementMismatch is returned by IsActiveElement when focus is
// elsewhere. Chain renders the focused element's ancestry root first.
type ErrActiveElementMismatch struct {
	Selector string `json:"selector"`
	Chain    string `json:"chain"`
}

func (e *ErrActiveElementMismatch) Error() string {
	return fmt.Sprintf("driver: active element mismatch: current active element is '%s', looking for %s", e.Chain, e.Selector)
}

func (e *ErrActiveElementMismatch) Code() string { return "ActiveElementMismatch" }

// ErrInvalidArgument is returned when a channel request is malformed.
type ErrInvalidArgument struct {
	Method string `json:"method"`
	Reason string `json:"reason"`
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("driver: invalid argument for %s: %s", e.Method, e.Reason)
}

func (e *ErrInvalidArgument) Code() string { return "InvalidArgument" }
