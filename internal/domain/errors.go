package domain

import "errors"

// Error kinds returned by the ledger core. Callers match them with errors.Is;
// adapters wrap them with additional context.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrTransferNotFound  = errors.New("transfer not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid transfer state")
	ErrSelfTransfer      = errors.New("source and destination accounts must differ")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrConflict          = errors.New("transaction conflict, retry the operation")
	ErrStoreUnavailable  = errors.New("ledger store unavailable")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrAccountNotFound, "AccountNotFound"},
	{ErrAccountExists, "AccountExists"},
	{ErrTransferNotFound, "TransferNotFound"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrInvalidState, "InvalidState"},
	{ErrSelfTransfer, "SelfTransfer"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidArgument, "InvalidArgument"},
	{ErrConflict, "Conflict"},
	{ErrStoreUnavailable, "StoreUnavailable"},
}

// KindOf returns the stable name of the error kind carried by err,
// or "Unknown" when err does not wrap any ledger error.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Unknown"
}

// IsRetryable reports whether retrying the same request may succeed.
// Only serialization conflicts qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
