package registry

import "fmt"

// ErrUnknownWindow is returned when a reload names a window that never
// registered.
type ErrUnknownWindow struct {
	WindowID int64 `json:"windowId"`
}

func (e *ErrUnknownWindow) Error() string {
	return fmt.Sprintf("registry: unknown window %d", e.WindowID)
}

func (e *ErrUnknownWindow) Code() string { return "UnknownWindow" }

// ErrInvalidWindow is returned for window ids below 1.
type ErrInvalidWindow struct {
	WindowID int64 `json:"windowId"`
}

func (e *ErrInvalidWindow) Error() string {
	return fmt.Sprintf("registry: invalid window id %d", e.WindowID)
}

func (e *ErrInvalidWindow) Code() string { return "InvalidWindow" }
