// Package memory provides an in-process LedgerStore.
//
// Serializability comes from a single writer lock held for the whole unit of
// work. Writes are staged on the transaction and only become visible on commit,
// so a unit of work that returns an error leaves no trace.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// Store implements domain.LedgerStore
type Store struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]domain.Account
	transfers map[uuid.UUID]domain.Transfer
}

var _ domain.LedgerStore = (*Store)(nil)

// NewStore creates an empty in-memory ledger store
func NewStore() *Store {
	return &Store{
		accounts:  make(map[uuid.UUID]domain.Account),
		transfers: make(map[uuid.UUID]domain.Transfer),
	}
}

// WithinSerializable runs fn while holding the writer lock and applies the
// staged writes only when fn succeeds.
func (s *Store) WithinSerializable(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{
		base:      s,
		accounts:  make(map[uuid.UUID]domain.Account),
		transfers: make(map[uuid.UUID]domain.Transfer),
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	for id, acc := range tx.accounts {
		s.accounts[id] = acc
	}
	for id, tr := range tx.transfers {
		s.transfers[id] = tr
	}
	return nil
}

// Accounts returns an autocommit account accessor
func (s *Store) Accounts() domain.AccountRepository {
	return &accountRepository{store: s}
}

// Transfers returns an autocommit transfer accessor
func (s *Store) Transfers() domain.TransferRepository {
	return &transferRepository{store: s}
}

// TotalBalance sums every account balance. Used to check value conservation.
func (s *Store) TotalBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, acc := range s.accounts {
		total = total.Add(acc.Balance)
	}
	return total
}

// txState holds the writes staged by one unit of work. The store lock is
// already held while it is alive, so reads go straight to the base maps.
type txState struct {
	base      *Store
	accounts  map[uuid.UUID]domain.Account
	transfers map[uuid.UUID]domain.Transfer
}

func (t *txState) Accounts() domain.AccountRepository {
	return &accountRepository{store: t.base, tx: t}
}

func (t *txState) Transfers() domain.TransferRepository {
	return &transferRepository{store: t.base, tx: t}
}

func (t *txState) account(id uuid.UUID) (domain.Account, bool) {
	if acc, ok := t.accounts[id]; ok {
		return acc, true
	}
	acc, ok := t.base.accounts[id]
	return acc, ok
}

func (t *txState) transfer(id uuid.UUID) (domain.Transfer, bool) {
	if tr, ok := t.transfers[id]; ok {
		return tr, true
	}
	tr, ok := t.base.transfers[id]
	return tr, ok
}

func (t *txState) allTransfers() []domain.Transfer {
	out := make([]domain.Transfer, 0, len(t.base.transfers)+len(t.transfers))
	for id, tr := range t.base.transfers {
		if _, staged := t.transfers[id]; !staged {
			out = append(out, tr)
		}
	}
	for _, tr := range t.transfers {
		out = append(out, tr)
	}
	return out
}

func cloneTransfer(tr domain.Transfer) *domain.Transfer {
	c := tr
	if tr.ResolvedBy != nil {
		by := *tr.ResolvedBy
		c.ResolvedBy = &by
	}
	if tr.ResolvedAt != nil {
		at := *tr.ResolvedAt
		c.ResolvedAt = &at
	}
	return &c
}

// filterTransfers applies the filter and the newest-first ordering used by
// every listing, then the page window.
func filterTransfers(all []domain.Transfer, filter domain.TransferFilter, paginate bool) []domain.Transfer {
	matched := make([]domain.Transfer, 0)
	for _, tr := range all {
		if tr.SourceAccountID != filter.AccountID && tr.DestinationAccountID != filter.AccountID {
			continue
		}
		if filter.Status != nil && tr.Status != *filter.Status {
			continue
		}
		if filter.DateFrom != nil && tr.CreatedAt.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && tr.CreatedAt.After(*filter.DateTo) {
			continue
		}
		matched = append(matched, tr)
	}

	slices.SortFunc(matched, func(a, b domain.Transfer) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})

	if !paginate {
		return matched
	}
	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return nil
	}
	matched = matched[offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched
}
