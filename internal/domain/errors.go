package domain

import "errors"

var (
	// ErrValidation marks caller input that fails domain validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state transition that is no longer applicable,
	// e.g. cancelling a reminder that already went inactive.
	ErrConflict = errors.New("conflict")
	// ErrNoSubscription marks a dispatch for a subject with no registered
	// push subscription.
	ErrNoSubscription = errors.New("no push subscription registered")
)
