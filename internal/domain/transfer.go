package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the lifecycle state of a transfer
type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "PENDING"
	TransferStatusSettled  TransferStatus = "SETTLED"
	TransferStatusRejected TransferStatus = "REJECTED"
)

// ParseTransferStatus converts a wire value into a TransferStatus
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch status := TransferStatus(s); status {
	case TransferStatusPending, TransferStatusSettled, TransferStatusRejected:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown transfer status %q", ErrInvalidArgument, s)
	}
}

// Direction tags a transfer relative to the account whose history is listed
type Direction string

const (
	DirectionSent     Direction = "SENT"
	DirectionReceived Direction = "RECEIVED"
)

// Decision is the reviewer's verdict on a pending transfer
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Validate ensures the decision is one of the supported values
func (d Decision) Validate() error {
	if d != DecisionApprove && d != DecisionReject {
		return fmt.Errorf("%w: decision must be APPROVE or REJECT, got %q", ErrInvalidArgument, string(d))
	}
	return nil
}

// Transfer represents a movement of value between two accounts.
// Amount is an absolute value; the direction is given by source and destination.
type Transfer struct {
	ID                   uuid.UUID
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               decimal.Decimal
	Status               TransferStatus
	CreatedAt            time.Time
	ResolvedBy           *uuid.UUID // NULL unless a reviewer approved or rejected it
	ResolvedAt           *time.Time
}

// Validate ensures the transfer adheres to domain rules
func (t *Transfer) Validate() error {
	if t.ID == uuid.Nil {
		return errors.New("transfer ID cannot be empty")
	}
	if t.SourceAccountID == t.DestinationAccountID {
		return ErrSelfTransfer
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if !HasValidScale(t.Amount) {
		return fmt.Errorf("%w: amount cannot have more than %d fractional digits", ErrInvalidAmount, MaxFractionalDigits)
	}
	switch t.Status {
	case TransferStatusPending, TransferStatusSettled, TransferStatusRejected:
	default:
		return fmt.Errorf("transfer status must be PENDING, SETTLED or REJECTED, got %q", t.Status)
	}
	return nil
}

// IsTerminal reports whether the transfer can no longer change status.
func (t *Transfer) IsTerminal() bool {
	return t.Status == TransferStatusSettled || t.Status == TransferStatusRejected
}

// Settle moves a pending transfer to SETTLED. It does not touch balances.
func (t *Transfer) Settle(resolvedBy uuid.UUID, at time.Time) error {
	return t.resolve(TransferStatusSettled, resolvedBy, at)
}

// Reject moves a pending transfer to REJECTED.
func (t *Transfer) Reject(resolvedBy uuid.UUID, at time.Time) error {
	return t.resolve(TransferStatusRejected, resolvedBy, at)
}

func (t *Transfer) resolve(to TransferStatus, resolvedBy uuid.UUID, at time.Time) error {
	if t.Status != TransferStatusPending {
		return fmt.Errorf("%w: transfer %s is %s, only PENDING transfers can be resolved", ErrInvalidState, t.ID, t.Status)
	}
	t.Status = to
	t.ResolvedBy = &resolvedBy
	t.ResolvedAt = &at
	return nil
}

// DirectionFor returns whether the transfer was sent or received by accountID
func (t *Transfer) DirectionFor(accountID uuid.UUID) Direction {
	if t.SourceAccountID == accountID {
		return DirectionSent
	}
	return DirectionReceived
}
