package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("incorrect email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrUnauthenticated      = errors.New("could not validate credentials")
	ErrUpstreamProvider     = errors.New("identity provider error")
	ErrInvalidExclusiveCode = errors.New("invalid exclusive code")
)

// ValidationError carries a human-readable reason and matches ErrValidation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failure talking to an OAuth provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamProvider
}

func upstream(provider string, err error) error {
	return &UpstreamError{Provider: provider, Err: err}
}
