package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository.
// With tx == nil every call is its own short transaction.
type accountRepository struct {
	store *Store
	tx    *txState
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var (
		acc domain.Account
		ok  bool
	)
	if r.tx != nil {
		acc, ok = r.tx.account(id)
	} else {
		r.store.mu.RLock()
		acc, ok = r.store.accounts[id]
		r.store.mu.RUnlock()
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return &acc, nil
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if r.tx == nil {
		return r.store.WithinSerializable(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Accounts().Create(ctx, account)
		})
	}

	if _, exists := r.tx.account(account.ID); exists {
		return fmt.Errorf("%w: %s", domain.ErrAccountExists, account.ID)
	}
	now := time.Now().UTC()
	stored := *account
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.tx.accounts[account.ID] = stored
	return nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if r.tx == nil {
		return r.store.WithinSerializable(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Accounts().UpdateBalance(ctx, id, balance)
		})
	}

	acc, ok := r.tx.account(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if balance.IsNegative() {
		return errors.New("balance would violate the non-negative constraint")
	}
	acc.Balance = balance
	acc.UpdatedAt = time.Now().UTC()
	r.tx.accounts[id] = acc
	return nil
}

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	store *Store
	tx    *txState
}

func (r *transferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	if r.tx == nil {
		return r.store.WithinSerializable(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Transfers().Create(ctx, transfer)
		})
	}

	if _, exists := r.tx.transfer(transfer.ID); exists {
		return fmt.Errorf("transfer %s already exists", transfer.ID)
	}
	for _, id := range []uuid.UUID{transfer.SourceAccountID, transfer.DestinationAccountID} {
		if _, ok := r.tx.account(id); !ok {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
	}
	r.tx.transfers[transfer.ID] = *cloneTransfer(*transfer)
	return nil
}

func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	var (
		tr domain.Transfer
		ok bool
	)
	if r.tx != nil {
		tr, ok = r.tx.transfer(id)
	} else {
		r.store.mu.RLock()
		tr, ok = r.store.transfers[id]
		r.store.mu.RUnlock()
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransferNotFound, id)
	}
	return cloneTransfer(tr), nil
}

func (r *transferRepository) UpdateStatus(ctx context.Context, transfer *domain.Transfer) error {
	if r.tx == nil {
		return r.store.WithinSerializable(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Transfers().UpdateStatus(ctx, transfer)
		})
	}

	current, ok := r.tx.transfer(transfer.ID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTransferNotFound, transfer.ID)
	}
	if current.Status != domain.TransferStatusPending {
		return fmt.Errorf("%w: transfer %s is already %s", domain.ErrInvalidState, transfer.ID, current.Status)
	}
	current.Status = transfer.Status
	current.ResolvedBy = transfer.ResolvedBy
	current.ResolvedAt = transfer.ResolvedAt
	r.tx.transfers[transfer.ID] = *cloneTransfer(current)
	return nil
}

func (r *transferRepository) List(ctx context.Context, filter domain.TransferFilter) ([]*domain.Transfer, error) {
	matched := filterTransfers(r.snapshot(), filter, true)

	out := make([]*domain.Transfer, 0, len(matched))
	for _, tr := range matched {
		out = append(out, cloneTransfer(tr))
	}
	return out, nil
}

func (r *transferRepository) Count(ctx context.Context, filter domain.TransferFilter) (int, error) {
	return len(filterTransfers(r.snapshot(), filter, false)), nil
}

func (r *transferRepository) snapshot() []domain.Transfer {
	if r.tx != nil {
		return r.tx.allTransfers()
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.Transfer, 0, len(r.store.transfers))
	for _, tr := range r.store.transfers {
		out = append(out, tr)
	}
	return out
}
