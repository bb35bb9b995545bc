package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session lifecycle
var (
	// Token errors
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSuperseded       = errors.New("superseded by a newer session change")
	ErrNoRefreshToken   = errors.New("no refresh token")

	// Backend errors
	ErrNetwork         = errors.New("network failure")
	ErrBackendRejected = errors.New("backend rejected request")
	ErrInvalidRequest  = errors.New("invalid request")

	// Broadcast errors
	ErrBusClosed = errors.New("bus closed")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

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

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
