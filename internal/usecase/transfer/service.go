package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/logging"
)

const tracerName = "github.com/simaogato/transferflow-backend/internal/usecase/transfer"

// CreateTransferInput represents the input for creating a transfer
type CreateTransferInput struct {
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               decimal.Decimal
}

// ResolveTransferInput represents a reviewer's decision on a pending transfer
type ResolveTransferInput struct {
	TransferID uuid.UUID
	Decision   domain.Decision
	ResolverID uuid.UUID // Authenticated caller making the decision
}

// TransferService is the transfer engine: it decides how a transfer settles,
// applies balance changes atomically and drives the approval state machine.
// Every mutating call runs inside exactly one serializable unit of work and
// is never retried here; ErrConflict is returned to the caller instead.
type TransferService struct {
	Store  domain.LedgerStore
	Policy domain.SettlementPolicy
	Logger *zap.Logger
	Tracer trace.Tracer
	Clock  func() time.Time
}

// NewTransferService creates a new TransferService instance
func NewTransferService(store domain.LedgerStore, policy domain.SettlementPolicy, logger *zap.Logger) *TransferService {
	return &TransferService{
		Store:  store,
		Policy: policy,
		Logger: logging.OrNop(logger),
		Tracer: otel.Tracer(tracerName),
		Clock: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// CreateTransfer moves amount from the source to the destination account.
// Logic:
//  1. Reject self transfers and invalid amounts before any read
//  2. Inside one serializable transaction:
//     - Read source and destination accounts
//     - Check the source can cover the amount
//     - Decide Auto (amount <= threshold) or ManualReview
//     - Insert the transfer as SETTLED (Auto) or PENDING (ManualReview)
//     - Auto only: debit source and credit destination
//  3. Commit; serialization failures surface as ErrConflict
func (s *TransferService) CreateTransfer(ctx context.Context, input CreateTransferInput) (*domain.Transfer, error) {
	ctx, span := s.Tracer.Start(ctx, "transfer.create", trace.WithAttributes(
		attribute.String("transfer.source_account_id", input.SourceAccountID.String()),
		attribute.String("transfer.destination_account_id", input.DestinationAccountID.String()),
		attribute.String("transfer.amount", input.Amount.String()),
	))
	defer span.End()

	transfer, err := s.createTransfer(ctx, input)
	if err != nil {
		s.fail(ctx, span, "create transfer failed", err,
			zap.Stringer("source_account_id", input.SourceAccountID),
			zap.Stringer("destination_account_id", input.DestinationAccountID),
			zap.String("amount", input.Amount.String()),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("transfer.id", transfer.ID.String()),
		attribute.String("transfer.status", string(transfer.Status)),
	)
	logging.WithTrace(ctx, s.Logger).Info("transfer created",
		zap.Stringer("transfer_id", transfer.ID),
		zap.Stringer("source_account_id", transfer.SourceAccountID),
		zap.Stringer("destination_account_id", transfer.DestinationAccountID),
		zap.String("amount", transfer.Amount.String()),
		zap.String("status", string(transfer.Status)),
	)
	return transfer, nil
}

func (s *TransferService) createTransfer(ctx context.Context, input CreateTransferInput) (*domain.Transfer, error) {
	// Self transfers are refused before the store is touched
	if input.SourceAccountID == input.DestinationAccountID {
		return nil, fmt.Errorf("%w: account %s", domain.ErrSelfTransfer, input.SourceAccountID)
	}
	if err := s.Policy.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	var created *domain.Transfer
	err := s.Store.WithinSerializable(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		// 1. Read source account
		source, err := uow.Accounts().GetByID(ctx, input.SourceAccountID)
		if err != nil {
			return fmt.Errorf("read source account: %w", err)
		}

		// 2. Read destination account
		destination, err := uow.Accounts().GetByID(ctx, input.DestinationAccountID)
		if err != nil {
			return fmt.Errorf("read destination account: %w", err)
		}

		// 3. Sufficient funds, checked even for transfers that will wait for review
		if !source.HasFunds(input.Amount) {
			return fmt.Errorf("%w: account %s cannot cover %s", domain.ErrInsufficientFunds, source.ID, input.Amount.StringFixed(domain.MaxFractionalDigits))
		}

		// 4. Settlement decision
		mode := s.Policy.Decide(input.Amount)

		// 5. Transfer record
		transfer := &domain.Transfer{
			ID:                   uuid.New(),
			SourceAccountID:      source.ID,
			DestinationAccountID: destination.ID,
			Amount:               input.Amount,
			Status:               domain.TransferStatusPending,
			CreatedAt:            s.Clock(),
		}
		if mode == domain.SettlementAuto {
			transfer.Status = domain.TransferStatusSettled
		}
		if err := transfer.Validate(); err != nil {
			return err
		}
		if err := uow.Transfers().Create(ctx, transfer); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}

		// 6. Move the funds in the same transaction
		if mode == domain.SettlementAuto {
			if err := settle(ctx, uow, source, destination, transfer.Amount); err != nil {
				return err
			}
		}

		created = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ResolveTransfer approves or rejects a pending transfer.
// Logic:
//  1. Read the transfer; only PENDING transfers can be resolved
//  2. Reject: mark REJECTED, balances untouched
//  3. Approve: re-read both accounts, re-check funds at resolution time,
//     debit source, credit destination and mark SETTLED
//
// A failed approval leaves the transfer PENDING.
func (s *TransferService) ResolveTransfer(ctx context.Context, input ResolveTransferInput) (*domain.Transfer, error) {
	ctx, span := s.Tracer.Start(ctx, "transfer.resolve", trace.WithAttributes(
		attribute.String("transfer.id", input.TransferID.String()),
		attribute.String("transfer.decision", string(input.Decision)),
		attribute.String("transfer.resolver_id", input.ResolverID.String()),
	))
	defer span.End()

	transfer, err := s.resolveTransfer(ctx, input)
	if err != nil {
		s.fail(ctx, span, "resolve transfer failed", err,
			zap.Stringer("transfer_id", input.TransferID),
			zap.String("decision", string(input.Decision)),
			zap.Stringer("resolver_id", input.ResolverID),
		)
		return nil, err
	}

	span.SetAttributes(attribute.String("transfer.status", string(transfer.Status)))
	logging.WithTrace(ctx, s.Logger).Info("transfer resolved",
		zap.Stringer("transfer_id", transfer.ID),
		zap.String("decision", string(input.Decision)),
		zap.Stringer("resolver_id", input.ResolverID),
		zap.String("amount", transfer.Amount.String()),
		zap.String("status", string(transfer.Status)),
	)
	return transfer, nil
}

func (s *TransferService) resolveTransfer(ctx context.Context, input ResolveTransferInput) (*domain.Transfer, error) {
	if err := input.Decision.Validate(); err != nil {
		return nil, err
	}
	if input.ResolverID == uuid.Nil {
		return nil, fmt.Errorf("%w: resolver identity is required", domain.ErrInvalidArgument)
	}

	var resolved *domain.Transfer
	err := s.Store.WithinSerializable(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		// 1. Read the transfer
		transfer, err := uow.Transfers().GetByID(ctx, input.TransferID)
		if err != nil {
			return fmt.Errorf("read transfer: %w", err)
		}
		if transfer.Status != domain.TransferStatusPending {
			return fmt.Errorf("%w: transfer %s is %s, only PENDING transfers can be resolved", domain.ErrInvalidState, transfer.ID, transfer.Status)
		}

		now := s.Clock()
		switch input.Decision {
		case domain.DecisionReject:
			// 2. Reject: no balance change
			if err := transfer.Reject(input.ResolverID, now); err != nil {
				return err
			}

		case domain.DecisionApprove:
			// 3. Approve: balances may have moved since creation, read them again
			source, err := uow.Accounts().GetByID(ctx, transfer.SourceAccountID)
			if err != nil {
				return fmt.Errorf("read source account: %w", err)
			}
			destination, err := uow.Accounts().GetByID(ctx, transfer.DestinationAccountID)
			if err != nil {
				return fmt.Errorf("read destination account: %w", err)
			}
			if err := settle(ctx, uow, source, destination, transfer.Amount); err != nil {
				return err
			}
			if err := transfer.Settle(input.ResolverID, now); err != nil {
				return err
			}
		}

		if err := uow.Transfers().UpdateStatus(ctx, transfer); err != nil {
			return fmt.Errorf("update transfer status: %w", err)
		}

		resolved = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// settle debits source and credits destination by amount and persists both
// balances. The debit fails with ErrInsufficientFunds before anything is written.
func settle(ctx context.Context, uow domain.UnitOfWork, source, destination *domain.Account, amount decimal.Decimal) error {
	if err := source.Debit(amount); err != nil {
		return err
	}
	destination.Credit(amount)

	if err := uow.Accounts().UpdateBalance(ctx, source.ID, source.Balance); err != nil {
		return fmt.Errorf("debit source account: %w", err)
	}
	if err := uow.Accounts().UpdateBalance(ctx, destination.ID, destination.Balance); err != nil {
		return fmt.Errorf("credit destination account: %w", err)
	}
	return nil
}

// fail records err on the span and logs it at a level matching its kind
func (s *TransferService) fail(ctx context.Context, span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.KindOf(err))

	logger := logging.WithTrace(ctx, s.Logger)
	fields = append(fields, zap.String("error_kind", domain.KindOf(err)), zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrConflict):
		logger.Warn(msg, fields...)
	case errors.Is(err, domain.ErrStoreUnavailable), domain.KindOf(err) == "Unknown":
		logger.Error(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}
