package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	// Returns ErrAccountNotFound when no such account exists
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// Create creates a new account
	// Returns ErrAccountExists when the ID is already taken
	Create(ctx context.Context, account *Account) error

	// UpdateBalance overwrites the stored balance of an account
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

// TransferFilter narrows a transfer listing to one account's history
type TransferFilter struct {
	AccountID uuid.UUID       // Matches either side of the transfer
	Status    *TransferStatus // Optional
	DateFrom  *time.Time      // Optional, inclusive
	DateTo    *time.Time      // Optional, inclusive
	Limit     int
	Offset    int
}

// TransferRepository defines the interface for transfer persistence operations
type TransferRepository interface {
	// Create creates a new transfer record
	Create(ctx context.Context, transfer *Transfer) error

	// GetByID retrieves a transfer by its ID
	// Returns ErrTransferNotFound when no such transfer exists
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// UpdateStatus persists the status and resolution fields of a transfer
	// Only PENDING rows may be updated; anything else yields ErrInvalidState
	UpdateStatus(ctx context.Context, transfer *Transfer) error

	// List retrieves transfers matching the filter, newest first
	List(ctx context.Context, filter TransferFilter) ([]*Transfer, error)

	// Count returns the number of transfers matching the filter (Limit/Offset ignored)
	Count(ctx context.Context, filter TransferFilter) (int, error)
}

// UnitOfWork exposes repositories bound to one open serializable transaction
type UnitOfWork interface {
	Accounts() AccountRepository
	Transfers() TransferRepository
}

// LedgerStore is the transactional store holding accounts and transfers.
type LedgerStore interface {
	// WithinSerializable opens a serializable transaction, runs fn and commits.
	// Any error returned by fn aborts the transaction and is returned unchanged.
	// A serialization failure at any point is reported as ErrConflict.
	WithinSerializable(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error

	// Accounts returns a read-committed account accessor for display reads
	Accounts() AccountRepository

	// Transfers returns a read-committed transfer accessor for history reads
	Transfers() TransferRepository
}
