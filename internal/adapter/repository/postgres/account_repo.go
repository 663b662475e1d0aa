package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	q querier
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{q: db}
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var account domain.Account
	var balanceStr string

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
		return nil, classify("failed to get account by ID", err)
	}

	// Parse balance (NUMERIC)
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	account.Balance = balance

	return &account, nil
}

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, balance, created_at, updated_at)
		VALUES ($1, $2, COALESCE($3, now()), COALESCE($4, now()))
	`

	_, err := r.q.ExecContext(ctx, query,
		account.ID,
		account.Balance.String(),
		nullTime(account.CreatedAt),
		nullTime(account.UpdatedAt),
	)
	if err != nil {
		if sqlState(err) == codeUniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrAccountExists, account.ID)
		}
		return classify("failed to create account", err)
	}

	return nil
}

// UpdateBalance overwrites the balance of an account
func (r *accountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $2, updated_at = now()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, balance.String())
	if err != nil {
		return classify("failed to update account balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}

	return nil
}

// nullTime maps the zero time to NULL so the column default applies
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
