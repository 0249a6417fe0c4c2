// Package recerrors defines the error taxonomy shared by the reconciliation
// core. Callers discriminate with errors.Is / errors.As.
package recerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced transaction or reconciliation id
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyConfirmed means a manual match was attempted on a
	// transaction that already has a confirmed reconciliation.
	ErrAlreadyConfirmed = errors.New("reconciliation already confirmed")

	// ErrConcurrentModification means a write lost a race against another
	// writer. The auto-match orchestrator treats it as "skip"; manual
	// callers see it surfaced.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrUpstreamUnavailable means the candidate repository or the
	// underlying store timed out or errored.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for one field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidTransitionError reports an illegal state-machine move and carries
// both ends of the attempted transition.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// NewInvalidTransition builds an InvalidTransitionError.
func NewInvalidTransition(from, to string) error {
	return &InvalidTransitionError{From: from, To: to}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}
