package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/logging"
)

// AccountService opens accounts for authenticated users and reads balances.
// An account shares its ID with the user that owns it.
type AccountService struct {
	AccountRepo domain.AccountRepository
	Logger      *zap.Logger
}

// NewAccountService creates a new AccountService instance
func NewAccountService(accountRepo domain.AccountRepository, logger *zap.Logger) *AccountService {
	return &AccountService{
		AccountRepo: accountRepo,
		Logger:      logging.OrNop(logger),
	}
}

// OpenAccount creates the account for userID with a zero balance.
// Returns ErrAccountExists if the user already has one.
func (s *AccountService) OpenAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	account := &domain.Account{
		ID:        userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to open account: %w", err)
	}

	logging.WithTrace(ctx, s.Logger).Info("account opened", zap.Stringer("account_id", account.ID))
	return account, nil
}

// GetAccount returns the current state of an account
func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}
