package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so the service cannot mutate the fixture
	acc := *args.Get(0).(*domain.Account)
	return &acc, args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

// MockTransferRepository is a mock implementation of TransferRepository
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	tr := *args.Get(0).(*domain.Transfer)
	return &tr, args.Error(1)
}

func (m *MockTransferRepository) UpdateStatus(ctx context.Context, transfer *domain.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) List(ctx context.Context, filter domain.TransferFilter) ([]*domain.Transfer, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transfer), args.Error(1)
}

func (m *MockTransferRepository) Count(ctx context.Context, filter domain.TransferFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

// mockUnitOfWork hands the mock repositories to the unit of work
type mockUnitOfWork struct {
	accounts  *MockAccountRepository
	transfers *MockTransferRepository
}

func (u *mockUnitOfWork) Accounts() domain.AccountRepository   { return u.accounts }
func (u *mockUnitOfWork) Transfers() domain.TransferRepository { return u.transfers }

// MockLedgerStore is a mock implementation of LedgerStore.
// WithinSerializable returns Error(0) as the begin failure; otherwise it runs
// fn against the mock repositories and returns Error(1) as the commit result.
type MockLedgerStore struct {
	mock.Mock
	uow *mockUnitOfWork
}

func newMockLedgerStore() (*MockLedgerStore, *MockAccountRepository, *MockTransferRepository) {
	accounts := new(MockAccountRepository)
	transfers := new(MockTransferRepository)
	return &MockLedgerStore{uow: &mockUnitOfWork{accounts: accounts, transfers: transfers}}, accounts, transfers
}

func (m *MockLedgerStore) WithinSerializable(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	if err := fn(ctx, m.uow); err != nil {
		return err
	}
	return args.Error(1)
}

func (m *MockLedgerStore) Accounts() domain.AccountRepository   { return m.uow.accounts }
func (m *MockLedgerStore) Transfers() domain.TransferRepository { return m.uow.transfers }
