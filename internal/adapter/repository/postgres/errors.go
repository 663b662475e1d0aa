package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// SQLSTATE codes the repositories react to
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// classify wraps a driver error with the ledger error kind it stands for.
// Serialization failures and deadlocks are conflicts the caller may retry;
// anything else coming from the driver means the store is unavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if sqlState(err) == codeSerializationFailure || sqlState(err) == codeDeadlockDetected {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// sqlState returns the SQLSTATE carried by err, or "" for non-PostgreSQL errors
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
