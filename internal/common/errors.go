// Package common defines the error taxonomy shared by the stores, services
// and HTTP handlers. Callers should use errors.Is / errors.As to match.
package common

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

var (
	// store-level errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// service-level errors
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is locked")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrInternal           = errors.New("internal error")
	ErrForbidden          = errors.New("forbidden")

	// token errors
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError carries per-field messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CredentialsError reports a rejected login. RemainingAttempts is negative
// when the count must not be disclosed.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string { return ErrInvalidCredentials.Error() }

func (e *CredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

// HasRemaining reports whether the remaining attempt count is disclosable.
func (e *CredentialsError) HasRemaining() bool { return e.RemainingAttempts >= 0 }

// LockedError reports an active lockout window.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s for %d more seconds", ErrAccountLocked.Error(), e.Seconds())
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// Seconds returns the remaining lock in whole seconds, rounded up.
func (e *LockedError) Seconds() int64 {
	if e.Remaining <= 0 {
		return 0
	}
	return int64(math.Ceil(e.Remaining.Seconds()))
}

// InternalError wraps an unexpected dependency failure. The cause is for
// logs only; handlers never render it.
type InternalError struct {
	Op  string
	Err error
}

// Internal wraps err as an InternalError; nil stays nil.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Op: op, Err: err}
}

func (e *InternalError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *InternalError) Is(target error) bool { return target == ErrInternal }

func (e *InternalError) Unwrap() error { return e.Err }
