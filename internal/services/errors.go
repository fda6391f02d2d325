package services

import (
	"errors"
	"fmt"

	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the merge target vanished between lookup and merge.
	ErrNotFound = errors.New("listing not found")
	// ErrConflictRetryable means concurrent writers kept winning after the
	// bounded retries. Re-running the ingest is safe.
	ErrConflictRetryable = errors.New("concurrent update conflict")
	// ErrStoreUnavailable wraps transport and persistence failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError describes the first invalid field of a candidate.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// storeError maps a store error onto the service taxonomy.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrVersionConflict):
		return fmt.Errorf("%s: %w", op, ErrConflictRetryable)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}
