package content

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrForbidden            = errors.New("only consultants can manage content")
	ErrSignInRequired       = errors.New("sign in to access premium content")
	ErrStorage              = errors.New("blob storage operation failed")
	ErrMetadata             = errors.New("metadata write failed")
	ErrNotFound             = errors.New("content not found")
	ErrDuplicate            = errors.New("a file with this name already exists")
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrPendingNotFound      = errors.New("pending submission not found or expired")
	ErrTooManyPending       = errors.New("too many unresolved duplicate submissions")
)

// ValidationError lists the offending fields. It unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrValidation.Error(), e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// DuplicateError is returned when a submission collides with an existing
// object. Nothing has been written; Pending can be resolved later.
type DuplicateError struct {
	Key     string
	Pending *PendingSubmission
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicate.Error(), e.Key)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
