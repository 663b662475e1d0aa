package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/logging"
)

// TreasuryAccountID is the fixed ID of the account that funds the ledger
var TreasuryAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// SystemSeeder makes sure the system accounts exist
type SystemSeeder struct {
	repo           domain.AccountRepository
	openingBalance decimal.Decimal
	logger         *zap.Logger
}

// NewSystemSeeder creates a new SystemSeeder instance.
// openingBalance is only used when the treasury account is created.
func NewSystemSeeder(repo domain.AccountRepository, openingBalance decimal.Decimal, logger *zap.Logger) *SystemSeeder {
	return &SystemSeeder{
		repo:           repo,
		openingBalance: openingBalance,
		logger:         logging.OrNop(logger),
	}
}

// Seed creates the treasury account if it does not exist yet.
// An existing treasury account is left untouched, whatever its balance.
func (s *SystemSeeder) Seed(ctx context.Context) error {
	_, err := s.repo.GetByID(ctx, TreasuryAccountID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return fmt.Errorf("failed to look up treasury account: %w", err)
	}

	treasury := &domain.Account{
		ID:      TreasuryAccountID,
		Balance: s.openingBalance,
	}
	if err := treasury.Validate(); err != nil {
		return fmt.Errorf("invalid treasury account: %w", err)
	}

	if err := s.repo.Create(ctx, treasury); err != nil {
		// Another instance seeded it first
		if errors.Is(err, domain.ErrAccountExists) {
			return nil
		}
		return fmt.Errorf("failed to create treasury account: %w", err)
	}

	s.logger.Info("treasury account created",
		zap.Stringer("account_id", TreasuryAccountID),
		zap.String("opening_balance", s.openingBalance.String()),
	)
	return nil
}
