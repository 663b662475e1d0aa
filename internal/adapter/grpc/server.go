package grpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/usecase/account"
	"github.com/simaogato/transferflow-backend/internal/usecase/history"
	"github.com/simaogato/transferflow-backend/internal/usecase/transfer"
)

// Server implements the TransferService gRPC server
type Server struct {
	AccountService  *account.AccountService
	TransferService *transfer.TransferService
	HistoryService  *history.HistoryService
}

var _ TransferServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	accountService *account.AccountService,
	transferService *transfer.TransferService,
	historyService *history.HistoryService,
) *Server {
	return &Server{
		AccountService:  accountService,
		TransferService: transferService,
		HistoryService:  historyService,
	}
}

// OpenAccount handles the OpenAccount RPC.
// The account is opened for the authenticated caller.
func (s *Server) OpenAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	acc, err := s.AccountService.OpenAccount(ctx, caller)
	if err != nil {
		return nil, mapError(err)
	}

	return newResponse(map[string]interface{}{
		"account": accountToMap(acc),
	})
}

// GetAccount handles the GetAccount RPC.
// account_id defaults to the caller's own account.
func (s *Server) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDOrCaller(ctx, req)
	if err != nil {
		return nil, err
	}

	acc, err := s.AccountService.GetAccount(ctx, accountID)
	if err != nil {
		return nil, mapError(err)
	}

	return newResponse(map[string]interface{}{
		"account": accountToMap(acc),
	})
}

// CreateTransfer handles the CreateTransfer RPC.
// The source account is always the caller's.
func (s *Server) CreateTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	// Parse destination account ID
	destinationID, err := requiredUUIDField(req, "destination_account_id")
	if err != nil {
		return nil, err
	}

	// Parse amount from string to decimal
	rawAmount, ok, err := stringField(req, "amount")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "amount is required")
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount format: %v", err)
	}

	// Call usecase service
	tr, err := s.TransferService.CreateTransfer(ctx, transfer.CreateTransferInput{
		SourceAccountID:      caller,
		DestinationAccountID: destinationID,
		Amount:               amount,
	})
	if err != nil {
		return nil, mapError(err)
	}

	message := "Transfer completed"
	if tr.Status == domain.TransferStatusPending {
		message = "Transfer pending approval"
	}

	return newResponse(map[string]interface{}{
		"transfer": transferToMap(tr),
		"message":  message,
	})
}

// ApproveTransfer handles the ApproveTransfer RPC
func (s *Server) ApproveTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.resolve(ctx, req, domain.DecisionApprove, "Transfer approved")
}

// RejectTransfer handles the RejectTransfer RPC
func (s *Server) RejectTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.resolve(ctx, req, domain.DecisionReject, "Transfer rejected")
}

func (s *Server) resolve(ctx context.Context, req *structpb.Struct, decision domain.Decision, message string) (*structpb.Struct, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	transferID, err := requiredUUIDField(req, "transfer_id")
	if err != nil {
		return nil, err
	}

	tr, err := s.TransferService.ResolveTransfer(ctx, transfer.ResolveTransferInput{
		TransferID: transferID,
		Decision:   decision,
		ResolverID: caller,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return newResponse(map[string]interface{}{
		"transfer": transferToMap(tr),
		"message":  message,
	})
}

// ListTransfers handles the ListTransfers RPC.
// account_id defaults to the caller's own account.
func (s *Server) ListTransfers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDOrCaller(ctx, req)
	if err != nil {
		return nil, err
	}

	input := history.ListTransfersInput{AccountID: accountID}

	// Parse optional status filter
	rawStatus, ok, err := stringField(req, "status")
	if err != nil {
		return nil, err
	}
	if ok {
		st, err := domain.ParseTransferStatus(rawStatus)
		if err != nil {
			return nil, mapError(err)
		}
		input.Status = &st
	}

	// Parse optional date range
	if input.DateFrom, err = timeField(req, "date_from"); err != nil {
		return nil, err
	}
	if input.DateTo, err = timeField(req, "date_to"); err != nil {
		return nil, err
	}

	// Parse paging
	if input.Page, err = intField(req, "page"); err != nil {
		return nil, err
	}
	if input.PageSize, err = intField(req, "page_size"); err != nil {
		return nil, err
	}

	result, err := s.HistoryService.ListTransfers(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, historyItemToMap(item))
	}

	return newResponse(map[string]interface{}{
		"items":      items,
		"pagination": pageMetaToMap(result.Meta),
	})
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return caller, nil
}

func accountIDOrCaller(ctx context.Context, req *structpb.Struct) (uuid.UUID, error) {
	accountID, ok, err := uuidField(req, "account_id")
	if err != nil {
		return uuid.Nil, err
	}
	if ok {
		return accountID, nil
	}
	return callerID(ctx)
}
