package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT" // insufficient stock, double return, duplicates
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

// Coder is implemented by every error that knows its API code.
type Coder interface{ ErrorCode() Code }

// Reasoner adds a machine-readable reason below the code.
type Reasoner interface{ ErrorReason() string }

// Detailer adds structured details to the error body.
type Detailer interface{ ErrorDetails() map[string]any }

type APIError struct {
	Code    Code
	Reason  string
	Message string
}

func (e *APIError) Error() string       { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func (e *APIError) ErrorCode() Code     { return e.Code }
func (e *APIError) ErrorReason() string { return e.Reason }

func New(code Code, reason, msg string) *APIError {
	return &APIError{Code: code, Reason: reason, Message: msg}
}

func ErrInvalid(msg string) *APIError     { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError    { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError    { return &APIError{Code: CodeConflict, Message: msg} }
func ErrUnavailable(msg string) *APIError { return &APIError{Code: CodeUnavailable, Message: msg} }
func ErrInternal(msg string) *APIError    { return &APIError{Code: CodeInternal, Message: msg} }

func CodeOf(err error) Code {
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeInternal
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ErrorDTO struct {
	Error struct {
		Code    Code           `json:"code"`
		Reason  string         `json:"reason,omitempty"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

func Body(code Code, msg string) ErrorDTO {
	var e ErrorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// FromErr renders err for clients. Errors without a code are reported opaquely.
func FromErr(err error) ErrorDTO {
	var c Coder
	if !errors.As(err, &c) || c.ErrorCode() == CodeInternal {
		return Body(CodeInternal, "internal error")
	}
	e := Body(c.ErrorCode(), message(err, c))
	var r Reasoner
	if errors.As(err, &r) {
		e.Error.Reason = r.ErrorReason()
	}
	var d Detailer
	if errors.As(err, &d) {
		e.Error.Details = d.ErrorDetails()
	}
	return e
}

func message(err error, c Coder) string {
	if api, ok := c.(*APIError); ok {
		return api.Message
	}
	if e, ok := c.(error); ok {
		return e.Error()
	}
	return err.Error()
}
