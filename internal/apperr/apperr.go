// Package apperr defines the error kinds surfaced by the core services.
// Callers match with errors.Is and map each kind to a distinct response.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: entity absent by id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: malformed input, e.g. quantity < 1.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState: operation disallowed in the entity's current state,
	// e.g. creating an order from an empty cart or against depleted stock.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict: uniqueness violation. Recovered locally by refresh-token
	// rotation; surfaced everywhere else.
	ErrConflict = errors.New("conflict")
	// ErrExpired: refresh token past its expiry. Distinct from not-found.
	ErrExpired = errors.New("expired")
	// ErrForbidden: role/ownership failure.
	ErrForbidden = errors.New("forbidden")
)

// NotFound wraps ErrNotFound with the entity and its lookup key.
func NotFound(entity string, key any) error {
	return fmt.Errorf("%s %v: %w", entity, key, ErrNotFound)
}

// InvalidArgument wraps ErrInvalidArgument with a description.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

// InvalidState wraps ErrInvalidState with a description.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidState)...)
}
