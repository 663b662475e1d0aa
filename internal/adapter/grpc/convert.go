package grpc

import (
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/usecase/history"
)

// stringField reads an optional string field. Absent, null and empty
// values all report ok == false; any other kind is an InvalidArgument.
func stringField(req *structpb.Struct, name string) (value string, ok bool, err error) {
	v, present := req.GetFields()[name]
	if !present {
		return "", false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "", false, nil
	case *structpb.Value_StringValue:
		return kind.StringValue, kind.StringValue != "", nil
	default:
		return "", false, status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
}

// uuidField reads an optional UUID field
func uuidField(req *structpb.Struct, name string) (uuid.UUID, bool, error) {
	raw, ok, err := stringField(req, name)
	if err != nil || !ok {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, true, nil
}

// requiredUUIDField reads a UUID field that must be present
func requiredUUIDField(req *structpb.Struct, name string) (uuid.UUID, error) {
	id, ok, err := uuidField(req, name)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return id, nil
}

// intField reads an optional integral number field, 0 when absent
func intField(req *structpb.Struct, name string) (int, error) {
	v, present := req.GetFields()[name]
	if !present {
		return 0, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		return int(n), nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
}

// timeField reads an optional RFC 3339 timestamp
func timeField(req *structpb.Struct, name string) (*time.Time, error) {
	raw, ok, err := stringField(req, name)
	if err != nil || !ok {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s format, expected RFC 3339: %v", name, err)
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// accountToMap converts a domain Account to its wire representation
func accountToMap(account *domain.Account) map[string]interface{} {
	return map[string]interface{}{
		"id":         account.ID.String(),
		"balance":    account.Balance.StringFixed(domain.MaxFractionalDigits),
		"created_at": formatTime(account.CreatedAt),
		"updated_at": formatTime(account.UpdatedAt),
	}
}

// transferToMap converts a domain Transfer to its wire representation.
// Amounts travel as decimal strings, never as numbers.
func transferToMap(transfer *domain.Transfer) map[string]interface{} {
	out := map[string]interface{}{
		"id":                     transfer.ID.String(),
		"source_account_id":      transfer.SourceAccountID.String(),
		"destination_account_id": transfer.DestinationAccountID.String(),
		"amount":                 transfer.Amount.StringFixed(domain.MaxFractionalDigits),
		"status":                 string(transfer.Status),
		"created_at":             formatTime(transfer.CreatedAt),
	}
	if transfer.ResolvedBy != nil {
		out["resolved_by"] = transfer.ResolvedBy.String()
	}
	if transfer.ResolvedAt != nil {
		out["resolved_at"] = formatTime(*transfer.ResolvedAt)
	}
	return out
}

func historyItemToMap(item history.TransferItem) map[string]interface{} {
	out := transferToMap(item.Transfer)
	out["direction"] = string(item.Direction)
	return out
}

func pageMetaToMap(meta history.PageMeta) map[string]interface{} {
	return map[string]interface{}{
		"page":        meta.Page,
		"page_size":   meta.PageSize,
		"total":       meta.Total,
		"total_pages": meta.TotalPages,
		"has_next":    meta.HasNext,
		"has_prev":    meta.HasPrev,
	}
}

// newResponse builds a Struct response from plain Go values
func newResponse(fields map[string]interface{}) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return resp, nil
}
