// Package errors provides domain-specific error types for the SDK.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/GoAskAway/askit-sdk/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert
// themselves to a structured ErrorDetail. New error types only need to
// implement this interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// It recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// TimeoutError reports that no response arrived for a correlated request
// before its timer fired. It names the event pair and the id so the
// failure can be traced on both sides of the boundary.
type TimeoutError struct {
	RequestEvent  string
	ResponseEvent string
	RequestID     string
	Duration      time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %v waiting for %q (id: %s)",
		e.RequestEvent, e.Duration, e.ResponseEvent, e.RequestID)
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "timeout", Code: e.RequestEvent, IsTimeout: true}
}

// MissingRequestIDError reports a request payload with no correlation id.
// This is a programming error on the caller's side and is surfaced
// immediately, never deferred to the timeout path.
type MissingRequestIDError struct {
	RequestEvent string
}

func (e *MissingRequestIDError) Error() string {
	return fmt.Sprintf("request %q has no requestId; a non-empty correlation id is required", e.RequestEvent)
}

// ToErrorDetail implements DetailedError.
func (e *MissingRequestIDError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "dispatch", Code: "missing_request_id"}
}

// DuplicateRequestError reports a second in-flight call reusing the
// response-event/request-id pair of a pending one. Rejecting it keeps
// at-most-one delivery per pending request; letting the second call
// shadow the first would strand the first caller until its timeout.
type DuplicateRequestError struct {
	ResponseEvent string
	RequestID     string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("request id %q is already pending on %q", e.RequestID, e.ResponseEvent)
}

// ToErrorDetail implements DetailedError.
func (e *DuplicateRequestError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "dispatch", Code: "duplicate_request_id"}
}

// UnknownModuleError reports a module event routed to a module no handler
// is registered for.
type UnknownModuleError struct {
	Module string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("no handler registered for module %q", e.Module)
}

// ToErrorDetail implements DetailedError.
func (e *UnknownModuleError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "dispatch", Code: "unknown_module"}
}

// UnknownMethodError reports a method a module handler does not implement.
type UnknownMethodError struct {
	Module string
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("module %q has no method %q", e.Module, e.Method)
}

// ToErrorDetail implements DetailedError.
func (e *UnknownMethodError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "dispatch", Code: "unknown_method"}
}

// PermissionError reports a call blocked by the permission gate under deny
// mode.
type PermissionError struct {
	Module string
	Method string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("missing permission: %s:%s", e.Module, e.Method)
}

// ToErrorDetail implements DetailedError.
func (e *PermissionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "permission", Code: entities.ViolationMissingPermission}
}

// ArgumentError reports a module handler invocation whose positional
// arguments could not be decoded into the method's parameter types.
type ArgumentError struct {
	Err    error
	Module string
	Method string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s:%s: %v", e.Module, e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ArgumentError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "dispatch", Code: "invalid_arguments"}
}
