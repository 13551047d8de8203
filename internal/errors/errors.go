package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the sensor dashboard client
var (
	// Authentication errors
	ErrAuth                = errors.New("authentication failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMissingRefreshToken = errors.New("missing refresh token")
	ErrMissingTokens       = errors.New("token response missing access or refresh token")
	ErrNotAuthenticated    = errors.New("not authenticated")

	// Token store errors
	ErrPartialPair = errors.New("token pair must contain both access and refresh tokens")

	// Transport errors
	ErrNetwork = errors.New("network failure")
	ErrServer  = errors.New("server error")

	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// AuthError reports missing or rejected credentials or tokens.
type AuthError struct {
	Op         string
	Reason     string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Op == "" {
		return "auth: " + msg
	}
	return e.Op + ": auth: " + msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// NewAuthError builds an AuthError wrapping a sentinel so callers can match either.
func NewAuthError(op string, reason error) *AuthError {
	return &AuthError{Op: op, Reason: reason.Error(), Err: reason}
}

// NetworkError is a transport level failure: DNS, refused connection, timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ServerError is any non-2xx response other than 401.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *ServerError) Is(target error) bool {
	if target == ErrServer {
		return true
	}
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsAuth reports whether err is, or wraps, an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers importing this package need not alias the stdlib.
func New(text string) error {
	return errors.New(text)
}
