package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError reports a request that could not be decoded or validated.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("INVALID_INPUT", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// kindMappings pairs each domain error kind with its transport representation.
var kindMappings = []struct {
	kind    error
	code    string
	message string
	status  int
}{
	{domain.ErrInvalidInput, "INVALID_INPUT", "username and password are required", http.StatusBadRequest},
	{domain.ErrAlreadyExists, "ALREADY_EXISTS", "user already exists", http.StatusConflict},
	{domain.ErrUnauthorized, "UNAUTHORIZED", "invalid username or password", http.StatusUnauthorized},
	{domain.ErrInvalidSignature, "INVALID_SIGNATURE", "invalid token", http.StatusUnauthorized},
	{domain.ErrTokenExpired, "TOKEN_EXPIRED", "token expired", http.StatusUnauthorized},
	{domain.ErrTokenMalformed, "TOKEN_MALFORMED", "invalid token", http.StatusUnauthorized},
	{domain.ErrStoreUnavailable, "STORE_UNAVAILABLE", "service temporarily unavailable", http.StatusServiceUnavailable},
	{domain.ErrNotFound, "NOT_FOUND", "resource not found", http.StatusNotFound},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, m := range kindMappings {
		if errors.Is(err, m.kind) {
			return &DomainError{Code: m.code, Message: m.message, HTTPStatus: m.status, Err: err}
		}
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{Code: codeForStatus(fiberErr.Code), Message: fiberErr.Message, HTTPStatus: fiberErr.Code}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_FAILED"
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
