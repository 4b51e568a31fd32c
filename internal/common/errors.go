package common

import (
	"errors"
	"net/http"
)

// AppError carries the public error code, message and HTTP status rendered
// by WriteError. Err stays server-side and is only surfaced through logs.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Code + ": " + e.Err.Error()
	default:
		return e.Code + ": " + e.Message
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails returns a copy of e carrying details in the response body.
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// StatusOf returns the HTTP status WriteError would use for err.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// WriteError renders err with the canonical error shape. Anything that is not
// an AppError becomes an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
		return
	}
	JSONError(w, StatusOf(appErr), appErr.Code, appErr.Message, appErr.Details)
}
