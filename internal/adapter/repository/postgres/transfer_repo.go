package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

const transferColumns = `id, source_account_id, destination_account_id, amount, status, created_at, resolved_by, resolved_at`

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	q querier
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *DB) domain.TransferRepository {
	return &transferRepository{q: db}
}

// Create inserts a new transfer
func (r *transferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		transfer.ID,
		transfer.SourceAccountID,
		transfer.DestinationAccountID,
		transfer.Amount.String(),
		string(transfer.Status),
		nullTime(transfer.CreatedAt),
		uuid.NullUUID{UUID: derefUUID(transfer.ResolvedBy), Valid: transfer.ResolvedBy != nil},
		transfer.ResolvedAt,
	)
	if err != nil {
		if sqlState(err) == codeForeignKeyViolation {
			return fmt.Errorf("%w: transfer %s references a missing account", domain.ErrAccountNotFound, transfer.ID)
		}
		return classify("failed to create transfer", err)
	}

	return nil
}

// GetByID retrieves a transfer by its ID
func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1
	`

	transfer, err := scanTransfer(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransferNotFound, id)
		}
		return nil, classify("failed to get transfer by ID", err)
	}

	return transfer, nil
}

// UpdateStatus persists the status and resolution of a transfer.
// Only rows that are still PENDING are updated.
func (r *transferRepository) UpdateStatus(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`

	result, err := r.q.ExecContext(ctx, query,
		transfer.ID,
		string(transfer.Status),
		uuid.NullUUID{UUID: derefUUID(transfer.ResolvedBy), Valid: transfer.ResolvedBy != nil},
		transfer.ResolvedAt,
	)
	if err != nil {
		return classify("failed to update transfer status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		// Either missing or already resolved
		if _, err := r.GetByID(ctx, transfer.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: transfer %s is no longer PENDING", domain.ErrInvalidState, transfer.ID)
	}

	return nil
}

// List returns the transfers matching filter, newest first
func (r *transferRepository) List(ctx context.Context, filter domain.TransferFilter) ([]*domain.Transfer, error) {
	where, args := transferWhere(filter)
	query := `SELECT ` + transferColumns + ` FROM transfers ` + where + ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("failed to list transfers", err)
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, classify("failed to scan transfer", err)
		}
		transfers = append(transfers, transfer)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("error iterating transfers", err)
	}

	return transfers, nil
}

// Count returns how many transfers match filter, ignoring Limit and Offset
func (r *transferRepository) Count(ctx context.Context, filter domain.TransferFilter) (int, error) {
	where, args := transferWhere(filter)

	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers `+where, args...).Scan(&count); err != nil {
		return 0, classify("failed to count transfers", err)
	}
	return count, nil
}

// transferWhere builds the WHERE clause shared by List and Count
func transferWhere(filter domain.TransferFilter) (string, []interface{}) {
	conditions := []string{"(source_account_id = $1 OR destination_account_id = $1)"}
	args := []interface{}{filter.AccountID}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row rowScanner) (*domain.Transfer, error) {
	var transfer domain.Transfer
	var amountStr, status string
	var resolvedBy uuid.NullUUID
	var resolvedAt sql.NullTime

	err := row.Scan(
		&transfer.ID,
		&transfer.SourceAccountID,
		&transfer.DestinationAccountID,
		&amountStr,
		&status,
		&transfer.CreatedAt,
		&resolvedBy,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	// Parse amount (NUMERIC)
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	transfer.Amount = amount
	transfer.Status = domain.TransferStatus(status)

	if resolvedBy.Valid {
		by := resolvedBy.UUID
		transfer.ResolvedBy = &by
	}
	if resolvedAt.Valid {
		at := resolvedAt.Time
		transfer.ResolvedAt = &at
	}

	return &transfer, nil
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
