package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func idempotentContext(caller uuid.UUID, key string) context.Context {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(IdempotencyKey, key))
	return WithCaller(ctx, caller)
}

func countingHandler(calls *int, resp *structpb.Struct, err error) grpc.UnaryHandler {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		*calls++
		return resp, err
	}
}

var createTransferInfo = &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodCreateTransfer)}

func TestIdempotencyInterceptor_ReplaysCachedResponse(t *testing.T) {
	mr, client := newTestRedis(t)
	interceptor := IdempotencyInterceptor(client, time.Hour, nil)
	caller := uuid.New()

	want, err := structpb.NewStruct(map[string]interface{}{
		"transfer": map[string]interface{}{"id": uuid.NewString(), "amount": "10.00"},
		"message":  "Transfer completed",
	})
	require.NoError(t, err)

	calls := 0
	handler := countingHandler(&calls, want, nil)

	first, err := interceptor(idempotentContext(caller, "key-1"), &structpb.Struct{}, createTransferInfo, handler)
	require.NoError(t, err)
	second, err := interceptor(idempotentContext(caller, "key-1"), &structpb.Struct{}, createTransferInfo, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, proto.Equal(want, first.(*structpb.Struct)))
	assert.True(t, proto.Equal(want, second.(*structpb.Struct)))

	cacheKey := idempotencyKeyPrefix + caller.String() + ":key-1"
	assert.True(t, mr.Exists(cacheKey))
	assert.Equal(t, time.Hour, mr.TTL(cacheKey))
	assert.False(t, mr.Exists(idempotencyLockPrefix+caller.String()+":key-1"), "lock must be released")
}

func TestIdempotencyInterceptor_KeysAreScopedToCaller(t *testing.T) {
	_, client := newTestRedis(t)
	interceptor := IdempotencyInterceptor(client, time.Hour, nil)

	calls := 0
	handler := countingHandler(&calls, &structpb.Struct{}, nil)

	_, err := interceptor(idempotentContext(uuid.New(), "shared"), &structpb.Struct{}, createTransferInfo, handler)
	require.NoError(t, err)
	_, err = interceptor(idempotentContext(uuid.New(), "shared"), &structpb.Struct{}, createTransferInfo, handler)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestIdempotencyInterceptor_KeyReusedWithDifferentRequest(t *testing.T) {
	mr, client := newTestRedis(t)
	interceptor := IdempotencyInterceptor(client, time.Hour, nil)
	caller := uuid.New()

	first, err := structpb.NewStruct(map[string]interface{}{"destination_account_id": uuid.NewString(), "amount": "10.00"})
	require.NoError(t, err)
	second, err := structpb.NewStruct(map[string]interface{}{"destination_account_id": first.Fields["destination_account_id"].GetStringValue(), "amount": "99.00"})
	require.NoError(t, err)

	calls := 0
	handler := countingHandler(&calls, &structpb.Struct{}, nil)

	_, err = interceptor(idempotentContext(caller, "pay-once"), first, createTransferInfo, handler)
	require.NoError(t, err)
	_, err = interceptor(idempotentContext(caller, "pay-once"), second, createTransferInfo, handler)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// An identical request still replays
	_, err = interceptor(idempotentContext(caller, "pay-once"), proto.Clone(first).(*structpb.Struct), createTransferInfo, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.NotEmpty(t, mr.HGet(idempotencyKeyPrefix+caller.String()+":pay-once", fingerprintField))
}

func TestIdempotencyInterceptor_FailuresAreNotCached(t *testing.T) {
	mr, client := newTestRedis(t)
	interceptor := IdempotencyInterceptor(client, time.Hour, nil)
	caller := uuid.New()

	calls := 0
	failing := countingHandler(&calls, nil, status.Error(codes.FailedPrecondition, "insufficient funds"))

	_, err := interceptor(idempotentContext(caller, "retry-me"), &structpb.Struct{}, createTransferInfo, failing)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = interceptor(idempotentContext(caller, "retry-me"), &structpb.Struct{}, createTransferInfo, failing)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	assert.Equal(t, 2, calls)
	assert.False(t, mr.Exists(idempotencyKeyPrefix+caller.String()+":retry-me"))
}

func TestIdempotencyInterceptor_ConcurrentDuplicateIsAborted(t *testing.T) {
	mr, client := newTestRedis(t)
	interceptor := IdempotencyInterceptor(client, time.Hour, nil)
	caller := uuid.New()

	// Simulate a request still holding the lock
	require.NoError(t, mr.Set(idempotencyLockPrefix+caller.String()+":in-flight", "processing"))

	calls := 0
	_, err := interceptor(idempotentContext(caller, "in-flight"), &structpb.Struct{}, createTransferInfo, countingHandler(&calls, &structpb.Struct{}, nil))

	assert.Equal(t, codes.Aborted, status.Code(err))
	assert.Equal(t, 0, calls)
}

func TestIdempotencyInterceptor_PassThrough(t *testing.T) {
	_, client := newTestRedis(t)
	interceptor := IdempotencyInterceptor(client, 0, nil)

	calls := 0
	handler := countingHandler(&calls, &structpb.Struct{}, nil)

	// No key
	ctx := WithCaller(context.Background(), uuid.New())
	_, err := interceptor(ctx, &structpb.Struct{}, createTransferInfo, handler)
	require.NoError(t, err)
	_, err = interceptor(ctx, &structpb.Struct{}, createTransferInfo, handler)
	require.NoError(t, err)

	// Other methods ignore the key
	listInfo := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodListTransfers)}
	_, err = interceptor(idempotentContext(uuid.New(), "k"), &structpb.Struct{}, listInfo, handler)
	require.NoError(t, err)
	_, err = interceptor(idempotentContext(uuid.New(), "k"), &structpb.Struct{}, listInfo, handler)
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
}

func TestIdempotencyInterceptor_RedisDown(t *testing.T) {
	// Nothing listens on port 1
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	interceptor := IdempotencyInterceptor(client, time.Hour, nil)

	calls := 0
	_, err := interceptor(idempotentContext(uuid.New(), "k"), &structpb.Struct{}, createTransferInfo, countingHandler(&calls, &structpb.Struct{}, nil))

	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, 0, calls)
}
