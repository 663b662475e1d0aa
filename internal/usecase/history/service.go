package history

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/logging"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	tracerName = "github.com/simaogato/transferflow-backend/internal/usecase/history"
)

// ListTransfersInput represents a transfer history query for one account
type ListTransfersInput struct {
	AccountID uuid.UUID
	Status    *domain.TransferStatus
	DateFrom  *time.Time // inclusive
	DateTo    *time.Time // inclusive
	Page      int        // 1-based, 0 means DefaultPage
	PageSize  int        // 0 means DefaultPageSize
}

// TransferItem is a transfer seen from the queried account
type TransferItem struct {
	Transfer  *domain.Transfer
	Direction domain.Direction
}

// PageMeta describes where a page sits in the full result
type PageMeta struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// ListTransfersResult represents one page of transfer history
type ListTransfersResult struct {
	Items []TransferItem
	Meta  PageMeta
}

// HistoryService answers read-only transfer history queries
type HistoryService struct {
	TransferRepo domain.TransferRepository
	Logger       *zap.Logger
	Tracer       trace.Tracer
}

// NewHistoryService creates a new HistoryService instance.
// transferRepo should be the store's read-committed accessor.
func NewHistoryService(transferRepo domain.TransferRepository, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		TransferRepo: transferRepo,
		Logger:       logging.OrNop(logger),
		Tracer:       otel.Tracer(tracerName),
	}
}

// ListTransfers returns the transfers where the account is source or
// destination, newest first, each tagged SENT or RECEIVED.
// Logic:
//  1. Apply paging defaults and validate the query
//  2. Count all matching transfers
//  3. Fetch the requested page
//  4. Tag each transfer with its direction and build the page meta
func (s *HistoryService) ListTransfers(ctx context.Context, input ListTransfersInput) (*ListTransfersResult, error) {
	ctx, span := s.Tracer.Start(ctx, "transfer.list", trace.WithAttributes(
		attribute.String("account.id", input.AccountID.String()),
		attribute.Int("page", input.Page),
		attribute.Int("page_size", input.PageSize),
	))
	defer span.End()

	result, err := s.listTransfers(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.KindOf(err))
		logging.WithTrace(ctx, s.Logger).Info("list transfers failed",
			zap.Stringer("account_id", input.AccountID),
			zap.String("error_kind", domain.KindOf(err)),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.total", result.Meta.Total))
	return result, nil
}

func (s *HistoryService) listTransfers(ctx context.Context, input ListTransfersInput) (*ListTransfersResult, error) {
	// 1. Defaults and validation
	page, pageSize := input.Page, input.PageSize
	if page == 0 {
		page = DefaultPage
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	switch {
	case input.AccountID == uuid.Nil:
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidArgument)
	case page < 0:
		return nil, fmt.Errorf("%w: page must be positive, got %d", domain.ErrInvalidArgument, page)
	case pageSize < 0 || pageSize > MaxPageSize:
		return nil, fmt.Errorf("%w: page size must be between 1 and %d, got %d", domain.ErrInvalidArgument, MaxPageSize, pageSize)
	case page > math.MaxInt/pageSize:
		return nil, fmt.Errorf("%w: page %d is out of range", domain.ErrInvalidArgument, page)
	case input.DateFrom != nil && input.DateTo != nil && input.DateFrom.After(*input.DateTo):
		return nil, fmt.Errorf("%w: date_from is after date_to", domain.ErrInvalidArgument)
	}
	if input.Status != nil {
		if _, err := domain.ParseTransferStatus(string(*input.Status)); err != nil {
			return nil, err
		}
	}

	filter := domain.TransferFilter{
		AccountID: input.AccountID,
		Status:    input.Status,
		DateFrom:  input.DateFrom,
		DateTo:    input.DateTo,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}

	// 2. Total for the page meta
	total, err := s.TransferRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count transfers: %w", err)
	}

	// 3. Requested page, skipped when it lies past the end
	var transfers []*domain.Transfer
	if filter.Offset < total {
		transfers, err = s.TransferRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list transfers: %w", err)
		}
	}

	// 4. Direction tags and meta
	items := make([]TransferItem, 0, len(transfers))
	for _, tr := range transfers {
		items = append(items, TransferItem{
			Transfer:  tr,
			Direction: tr.DirectionFor(input.AccountID),
		})
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &ListTransfersResult{
		Items: items,
		Meta: PageMeta{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}
