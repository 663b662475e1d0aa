package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxFractionalDigits is the number of decimal places money may carry.
const MaxFractionalDigits = 2

var (
	// DefaultAutoApprovalThreshold is the amount at or below which a transfer settles immediately.
	DefaultAutoApprovalThreshold = decimal.NewFromInt(50000)

	// DefaultMaxTransferAmount is the largest amount a single transfer may carry.
	DefaultMaxTransferAmount = decimal.RequireFromString("10000000000000.00")
)

// SettlementMode tells whether a transfer moves funds at creation or waits for review
type SettlementMode string

const (
	SettlementAuto         SettlementMode = "AUTO"
	SettlementManualReview SettlementMode = "MANUAL_REVIEW"
)

// SettlementPolicy holds the configured limits that drive the settlement decision
type SettlementPolicy struct {
	AutoApprovalThreshold decimal.Decimal
	MaxAmount             decimal.Decimal
}

// DefaultSettlementPolicy returns the policy used when nothing is configured
func DefaultSettlementPolicy() SettlementPolicy {
	return SettlementPolicy{
		AutoApprovalThreshold: DefaultAutoApprovalThreshold,
		MaxAmount:             DefaultMaxTransferAmount,
	}
}

// Validate ensures the policy limits are coherent
func (p SettlementPolicy) Validate() error {
	if !p.AutoApprovalThreshold.IsPositive() {
		return fmt.Errorf("%w: auto-approval threshold must be positive", ErrInvalidArgument)
	}
	if !p.MaxAmount.IsPositive() {
		return fmt.Errorf("%w: maximum transfer amount must be positive", ErrInvalidArgument)
	}
	if p.AutoApprovalThreshold.GreaterThan(p.MaxAmount) {
		return fmt.Errorf("%w: auto-approval threshold cannot exceed the maximum transfer amount", ErrInvalidArgument)
	}
	return nil
}

// ValidateAmount checks that amount is a positive value with at most two
// fractional digits and not above the configured maximum.
func (p SettlementPolicy) ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if !HasValidScale(amount) {
		return fmt.Errorf("%w: amount cannot have more than %d fractional digits", ErrInvalidAmount, MaxFractionalDigits)
	}
	if amount.GreaterThan(p.MaxAmount) {
		return fmt.Errorf("%w: amount exceeds the maximum of %s", ErrInvalidAmount, p.MaxAmount.StringFixed(MaxFractionalDigits))
	}
	return nil
}

// Decide picks the settlement mode for an amount.
func (p SettlementPolicy) Decide(amount decimal.Decimal) SettlementMode {
	if amount.LessThanOrEqual(p.AutoApprovalThreshold) {
		return SettlementAuto
	}
	return SettlementManualReview
}

// HasValidScale reports whether d has at most MaxFractionalDigits fractional digits.
// Trailing zeros do not count: 10.500 is accepted.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MaxFractionalDigits))
}
