package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrProtected matches every ProtectedEntityError.
	ErrProtected = errors.New("protected entity")
	// ErrCorrupt matches every StorageCorruptionError.
	ErrCorrupt = errors.New("storage corrupted")

	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrEmptyCategory = errors.New("category is required")
	ErrDuplicateName = errors.New("category already exists")
)

// ValidationError reports input that breaks a domain invariant. Nothing is
// written when an operation returns it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProtectedEntityError is returned when deleting a protected category.
type ProtectedEntityError struct {
	ID   string
	Name string
}

func (e *ProtectedEntityError) Error() string {
	return fmt.Sprintf("category %q is protected and cannot be deleted", e.Name)
}

func (e *ProtectedEntityError) Is(target error) bool {
	return target == ErrProtected
}

// StorageCorruptionError is returned when a persisted collection exists but
// cannot be decoded. It is never downgraded to an empty collection.
type StorageCorruptionError struct {
	Key string
	Err error
}

func (e *StorageCorruptionError) Error() string {
	return fmt.Sprintf("stored %q is corrupted: %v", e.Key, e.Err)
}

func (e *StorageCorruptionError) Unwrap() error {
	return e.Err
}

func (e *StorageCorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

// NewValidationError wraps err as a ValidationError for field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error()}
}
