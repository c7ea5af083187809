package utils

import (
	"fmt"
	"net/http"
)

// AppError represents an application error
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequestError creates a 400 Bad Request error
func BadRequestError(code, message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, code, message, err)
}

// NotFoundError creates a 404 Not Found error
func NotFoundError(code, message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, code, message, err)
}

// ConflictError creates a 409 Conflict error
func ConflictError(code, message string, err error) *AppError {
	return NewAppError(http.StatusConflict, code, message, err)
}

// InternalError creates a 500 error carrying the generic retry message.
func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, MsgTryAgain, err)
}
