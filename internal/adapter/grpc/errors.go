package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// errorCodes maps ledger error kinds to gRPC codes. Kinds marked opaque may
// wrap driver errors, so only the kind's own message reaches the client.
var errorCodes = []struct {
	err    error
	code   codes.Code
	opaque bool
}{
	{err: domain.ErrAccountNotFound, code: codes.NotFound},
	{err: domain.ErrTransferNotFound, code: codes.NotFound},
	{err: domain.ErrInsufficientFunds, code: codes.FailedPrecondition},
	{err: domain.ErrInvalidState, code: codes.FailedPrecondition},
	{err: domain.ErrSelfTransfer, code: codes.InvalidArgument},
	{err: domain.ErrInvalidAmount, code: codes.InvalidArgument},
	{err: domain.ErrInvalidArgument, code: codes.InvalidArgument},
	{err: domain.ErrAccountExists, code: codes.AlreadyExists},
	{err: domain.ErrConflict, code: codes.Aborted, opaque: true},
	{err: domain.ErrStoreUnavailable, code: codes.Unavailable, opaque: true},
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	for _, ec := range errorCodes {
		if !errors.Is(err, ec.err) {
			continue
		}
		if ec.opaque {
			return status.Error(ec.code, ec.err.Error())
		}
		return status.Error(ec.code, err.Error())
	}

	// Unknown errors may carry driver details; keep them out of the response
	return status.Error(codes.Internal, "internal error")
}
