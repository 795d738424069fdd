// Package errs defines the domain error taxonomy shared by services and
// handlers. NotFound, InvalidTransition and DuplicateResponse are expected
// outcomes surfaced to clients verbatim; everything else is wrapped as an
// operation failure so internal detail does not leak.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced lecture, question, response, chapter
	// or answer does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means a status change is not permitted from the
	// entity's current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateResponse means the student has already answered this
	// lecture question.
	ErrDuplicateResponse = errors.New("duplicate response")

	// ErrValidationFailed means one or more referenced ids could not be
	// confirmed with an upstream collaborator.
	ErrValidationFailed = errors.New("validation failed")
)

// Operation wraps an unexpected persistence or transport error with the
// operation that failed. Domain sentinels pass through unwrapped so callers
// can still branch on them with errors.Is.
func Operation(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDomain reports whether err is one of the expected domain outcomes.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateResponse) ||
		errors.Is(err, ErrValidationFailed)
}
