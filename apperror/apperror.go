// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package apperror carries the user-visible error taxonomy of the API. Lower
// layers return their own sentinel errors; services translate them into an
// *Error which handlers render as {"error": {"code", "message", "details"}}.
package apperror

import (
	"errors"
	"net/http"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	CodeInternal     = "INTERNAL_ERROR"
)

type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// Body is the JSON envelope written to clients.
type Body struct {
	Error BodyError `json:"error"`
}

type BodyError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func (e *Error) Body() Body {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	return Body{Error: BodyError{Code: e.Code, Message: e.Message, Details: details}}
}

func New(status int, code, message string, details map[string]any) *Error {
	return &Error{Status: status, Code: code, Message: message, Details: details}
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message, nil)
}

func Validation(message string, details map[string]any) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidation, message, details)
}

func RateLimited(retryAfterSeconds int) *Error {
	return New(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded",
		map[string]any{"retry_after": retryAfterSeconds})
}

func Internal() *Error {
	return New(http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
}

// From returns the *Error in err's chain, or a generic internal error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal()
}
