package domain

import (
	"errors"
	"fmt"
)

// Expected business outcomes. Callers distinguish these from storage
// failures with errors.Is; they are surfaced to end users as normal
// negative results rather than alerts.
var (
	ErrNotFound         = errors.New("not found")
	ErrSeatsUnavailable = errors.New("not enough seats available")
	ErrInvalidState     = errors.New("operation not allowed in current booking state")
	ErrHoldExpired      = errors.New("hold has expired")
	ErrValidation       = errors.New("validation failed")
)

// StorageError wraps an infrastructure failure from the inventory ledger.
// The operation it aborted has no partial effect.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError keeps ErrNotFound and the business sentinels out of the
// storage wrapper so errors.Is keeps working across layers.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
