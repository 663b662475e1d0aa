package postgres

import (
	"context"
	"database/sql"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements domain.LedgerStore on PostgreSQL
type Store struct {
	db *DB
}

// NewStore creates a new ledger store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// WithinSerializable runs fn inside a SERIALIZABLE transaction.
// The transaction commits only if fn returns nil; serialization failures on
// any statement or on commit come back as domain.ErrConflict.
func (s *Store) WithinSerializable(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &unitOfWork{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("failed to commit transaction", err)
	}
	return nil
}

// Accounts returns an account repository outside any explicit transaction
func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.db)
}

// Transfers returns a transfer repository outside any explicit transaction
func (s *Store) Transfers() domain.TransferRepository {
	return NewTransferRepository(s.db)
}

type unitOfWork struct {
	q querier
}

func (u *unitOfWork) Accounts() domain.AccountRepository {
	return &accountRepository{q: u.q}
}

func (u *unitOfWork) Transfers() domain.TransferRepository {
	return &transferRepository{q: u.q}
}
