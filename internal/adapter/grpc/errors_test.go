package grpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "account not found", err: domain.ErrAccountNotFound, code: codes.NotFound},
		{name: "transfer not found", err: fmt.Errorf("read transfer: %w", domain.ErrTransferNotFound), code: codes.NotFound},
		{name: "insufficient funds", err: domain.ErrInsufficientFunds, code: codes.FailedPrecondition},
		{name: "invalid state", err: domain.ErrInvalidState, code: codes.FailedPrecondition},
		{name: "self transfer", err: domain.ErrSelfTransfer, code: codes.InvalidArgument},
		{name: "invalid amount", err: domain.ErrInvalidAmount, code: codes.InvalidArgument},
		{name: "invalid argument", err: domain.ErrInvalidArgument, code: codes.InvalidArgument},
		{name: "account exists", err: domain.ErrAccountExists, code: codes.AlreadyExists},
		{name: "conflict", err: fmt.Errorf("commit: %w", domain.ErrConflict), code: codes.Aborted},
		{name: "store unavailable", err: domain.ErrStoreUnavailable, code: codes.Unavailable},
		{name: "unknown", err: errors.New("pq: relation does not exist"), code: codes.Internal},
		{name: "already a status", err: status.Error(codes.Unauthenticated, "nope"), code: codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(mapError(tt.err)))
		})
	}

	assert.NoError(t, mapError(nil))
	assert.NotContains(t, status.Convert(mapError(errors.New("pq: password authentication failed"))).Message(), "password")
}

func TestMapError_MessageDetail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "store failure hides the driver error",
			err:  fmt.Errorf("commit: %w: %w", domain.ErrStoreUnavailable, errors.New(`pq: relation "accounts" does not exist`)),
			want: domain.ErrStoreUnavailable.Error(),
		},
		{
			name: "conflict hides the driver error",
			err:  fmt.Errorf("commit: %w: %w", domain.ErrConflict, errors.New("pq: could not serialize access")),
			want: domain.ErrConflict.Error(),
		},
		{
			name: "business errors keep their context",
			err:  fmt.Errorf("%w: account %s cannot cover 10.00", domain.ErrInsufficientFunds, "a1"),
			want: "insufficient funds: account a1 cannot cover 10.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Convert(mapError(tt.err)).Message())
		})
	}
}
