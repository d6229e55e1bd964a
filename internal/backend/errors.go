package backend

import (
	"errors"
	"fmt"

	"github.com/evanschultz/taskdeck/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrTitleTooLong      = errors.New("title is too long")
	ErrRepositoryMissing = errors.New("repository is required")
)

// TransitionError reports a rejected status change. To holds the raw
// requested value, which may not be a valid status.
type TransitionError struct {
	From domain.Status
	To   string
}

// Error implements error.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("Invalid state transition from %s to %s", e.From, e.To)
}

// Unwrap exposes ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
