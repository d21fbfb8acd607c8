package types

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Code is a stable, client-visible error code
type Code string

const (
	CodeServiceNotFound       Code = "SERVICE_NOT_FOUND"
	CodeServiceUnavailable    Code = "SERVICE_UNAVAILABLE"
	CodeOperationNotSupported Code = "OPERATION_NOT_SUPPORTED"
	CodeInvalidRequest        Code = "INVALID_REQUEST"
	CodeInvalidParams         Code = "INVALID_PARAMS"
	CodeMethodNotFound        Code = "METHOD_NOT_FOUND"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// HTTPStatus maps a code to the status used by the REST adapters
func (c Code) HTTPStatus() int {
	switch c {
	case CodeServiceNotFound, CodeMethodNotFound:
		return http.StatusNotFound
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeOperationNotSupported, CodeInvalidRequest, CodeInvalidParams:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RPCCode maps a code to a JSON-RPC 2.0 error code.
// Gateway-specific codes live in the implementation-defined server range.
func (c Code) RPCCode() int {
	switch c {
	case CodeInvalidRequest:
		return -32600
	case CodeMethodNotFound:
		return -32601
	case CodeInvalidParams:
		return -32602
	case CodeServiceNotFound:
		return -32001
	case CodeServiceUnavailable:
		return -32002
	case CodeOperationNotSupported:
		return -32003
	default:
		return -32603
	}
}

// Error is the gateway's structured error
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	// Stack is diagnostic only and never serialised.
	Stack string `json:"-"`
	cause error
}

// NewError builds a taxonomy error
func NewError(code Code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Errorf builds a taxonomy error with a formatted message and no details
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped foreign error, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// AsError returns the taxonomy error in err's chain
func AsError(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code
func IsCode(err error, code Code) bool {
	gwErr, ok := AsError(err)
	return ok && gwErr.Code == code
}

// Internal wraps a foreign error as INTERNAL_ERROR, keeping its message
// and capturing the current stack for diagnostics.
func Internal(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    CodeInternal,
		Message: err.Error(),
		Details: map[string]any{"type": fmt.Sprintf("%T", err)},
		Stack:   string(debug.Stack()),
		cause:   err,
	}
}

// Normalize passes taxonomy errors through and wraps everything else.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	if gwErr, ok := AsError(err); ok {
		return gwErr
	}
	return Internal(err)
}

// Public returns a copy safe to show to untrusted clients.
// INTERNAL_ERROR details are dropped unless exposeInternal is set.
func (e *Error) Public(exposeInternal bool) *Error {
	out := &Error{Code: e.Code, Message: e.Message, Details: e.Details}
	if e.Code == CodeInternal && !exposeInternal {
		out.Details = nil
	}
	return out
}
