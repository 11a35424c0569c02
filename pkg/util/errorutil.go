package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes returned to callers. Handlers branch on these to pick
// user-facing messages; anything mapped to STORE_ERROR is internal.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyClaimed   = "ALREADY_CLAIMED"
	CodeAlreadyClosed    = "ALREADY_CLOSED"
	CodeNoPendingRequest = "NO_PENDING_REQUEST"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeConflict         = "CONFLICT"
	CodeStoreError       = "STORE_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
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

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewAlreadyClaimed(claimedBy string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["claimed_by"] = claimedBy
	return NewDomainError(CodeAlreadyClaimed, "ticket already claimed", http.StatusConflict, details)
}

func NewAlreadyClosed(details map[string]any) error {
	return NewDomainError(CodeAlreadyClosed, "ticket already closed", http.StatusConflict, details)
}

func NewNoPendingRequest(details map[string]any) error {
	return NewDomainError(CodeNoPendingRequest, "no pending close request", http.StatusConflict, details)
}

func NewPermissionDenied(message string, details map[string]any) error {
	if message == "" {
		message = "permission denied"
	}
	return NewDomainError(CodePermissionDenied, message, http.StatusForbidden, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewStoreError wraps an underlying persistence failure.
func NewStoreError(err error) error {
	return &DomainError{
		Code:       CodeStoreError,
		Message:    "storage failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func IsAlreadyClaimed(err error) bool { return HasCode(err, CodeAlreadyClaimed) }

func IsAlreadyClosed(err error) bool { return HasCode(err, CodeAlreadyClosed) }

func IsNoPendingRequest(err error) bool { return HasCode(err, CodeNoPendingRequest) }

func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

func IsPermissionDenied(err error) bool { return HasCode(err, CodePermissionDenied) }

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeStoreError,
		Message:    "storage failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
