package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a user's balance holder in the domain layer.
// The account ID is the owning user's identifier.
type Account struct {
	ID        uuid.UUID
	Balance   decimal.Decimal // Never negative after a committed transaction
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return errors.New("account ID cannot be empty")
	}
	if a.Balance.IsNegative() {
		return errors.New("account balance cannot be negative")
	}
	if !HasValidScale(a.Balance) {
		return fmt.Errorf("account balance cannot have more than %d fractional digits", MaxFractionalDigits)
	}
	return nil
}

// HasFunds reports whether the account can cover amount.
func (a *Account) HasFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Debit subtracts amount from the balance.
// The balance is left untouched when it cannot cover the amount.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !a.HasFunds(amount) {
		return fmt.Errorf("%w: account %s has %s, needs %s", ErrInsufficientFunds, a.ID, a.Balance.StringFixed(2), amount.StringFixed(2))
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}
