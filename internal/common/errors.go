package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and a machine-readable code alongside the cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

const (
	CodeNotFound   = "not_found"
	CodeForbidden  = "forbidden"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

func NewError(status int, code string, err error) error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) error {
	return NewError(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...interface{}) error {
	return NewError(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func BadRequest(format string, args ...interface{}) error {
	return NewError(http.StatusBadRequest, CodeBadRequest, fmt.Errorf(format, args...))
}

func Internal(format string, args ...interface{}) error {
	return NewError(http.StatusInternalServerError, CodeInternal, fmt.Errorf(format, args...))
}

// StatusOf maps an error to an HTTP status; unclassified errors are 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}

func IsNotFound(err error) bool   { return CodeOf(err) == CodeNotFound }
func IsForbidden(err error) bool  { return CodeOf(err) == CodeForbidden }
func IsBadRequest(err error) bool { return CodeOf(err) == CodeBadRequest }
