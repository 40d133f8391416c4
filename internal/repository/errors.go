package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by repositories. Callers translate them into API errors.
var (
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrPendingExists signals a second PENDING correction for the same entry.
	ErrPendingExists = errors.New("pending correction already exists for entry")
	// ErrSerialization signals a serialization failure or deadlock; the transaction was aborted.
	ErrSerialization = errors.New("transaction serialization failure")
	// ErrAlreadyLocked signals that the diary page serial number is already set.
	ErrAlreadyLocked = errors.New("page serial number already locked")
)

const (
	pqUniqueViolation      = pq.ErrorCode("23505")
	pqSerializationFailure = pq.ErrorCode("40001")
	pqDeadlockDetected     = pq.ErrorCode("40P01")

	pendingPerEntryConstraint = "correction_logs_one_pending_per_entry"
)

// classifyPQError maps driver errors onto repository sentinels, keeping the original in the chain.
func classifyPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		if pqErr.Constraint == pendingPerEntryConstraint {
			return fmt.Errorf("%w: %w", ErrPendingExists, err)
		}
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case pqSerializationFailure, pqDeadlockDetected:
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return err
}
