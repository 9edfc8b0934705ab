package connectivity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrServiceNotFound is returned when Call targets a service with no route
// and no local handler.
type ErrServiceNotFound struct {
	Service string
}

func (e *ErrServiceNotFound) Error() string {
	return fmt.Sprintf("connectivity: service not routable: %s", e.Service)
}

// ErrUnknownMethod is returned by a method-envelope service that has no
// handler for the requested method.
type ErrUnknownMethod struct {
	Method string
}

func (e *ErrUnknownMethod) Error() string {
	return fmt.Sprintf("connectivity: unknown method: %s", e.Method)
}

func (e *ErrUnknownMethod) Code() string { return "UnknownMethod" }

// ErrCircuitOpen is returned when the circuit breaker for a service is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("connectivity: circuit open: %s", e.Service)
}

// ErrRemoteStatus is returned by the HTTP transport for a non-2xx response
// that does not carry a CallError body.
type ErrRemoteStatus struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *ErrRemoteStatus) Error() string {
	return fmt.Sprintf("connectivity/http: %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// CallError is the wire form of a coded error. Servers emit it for errors
// that implement Code() string; clients receive it from remote calls and
// may map Code back to a typed error. Details holds the JSON encoding of
// the original error value.
type CallError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *CallError) Error() string {
	return e.Message
}

// coder is implemented by errors that carry a stable wire code.
type coder interface {
	Code() string
}

// AsCallError converts a coded error, or one wrapping a coded error, into
// its wire form. It returns nil for errors without a code.
func AsCallError(err error) *CallError {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}
	var c coder
	if !errors.As(err, &c) {
		return nil
	}
	ce = &CallError{Code: c.Code(), Message: err.Error()}
	if details, mErr := json.Marshal(c); mErr == nil && string(details) != "{}" {
		ce.Details = details
	}
	return ce
}
