package grpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/logging"
)

const (
	// IdempotencyKey is the metadata key carrying the client's idempotency key
	IdempotencyKey = "idempotency-key"

	// IdempotencyHitKey is set on the response header when a cached response is replayed
	IdempotencyHitKey = "x-idempotency-hit"

	// DefaultIdempotencyTTL defines how long responses are cached in Redis
	DefaultIdempotencyTTL = 24 * time.Hour

	// idempotencyLockTimeout prevents indefinite locks if a request crashes
	idempotencyLockTimeout = 10 * time.Second

	idempotencyKeyPrefix  = "idempotency:"
	idempotencyLockPrefix = "idempotency-lock:"

	// Fields of the cached entry hash
	fingerprintField = "fingerprint"
	responseField    = "response"
)

// IdempotencyInterceptor replays the stored response when a CreateTransfer
// call repeats an idempotency key, so a retried request never moves funds twice.
// Keys are scoped to the caller and must run after AuthInterceptor.
//
// Flow:
//  1. Calls without the idempotency-key header pass straight through
//  2. A cached response is returned as is when the request matches the one
//     that produced it; a different request under the same key is InvalidArgument
//  3. A Redis lock rejects concurrent duplicates with codes.Aborted
//  4. Successful responses are cached for ttl with the request fingerprint;
//     failures are not
func IdempotencyInterceptor(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) grpc.UnaryServerInterceptor {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	logger = logging.OrNop(logger)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if info.FullMethod != FullMethod(MethodCreateTransfer) {
			return handler(ctx, req)
		}

		key := idempotencyKeyFrom(ctx)
		if key == "" {
			return handler(ctx, req)
		}

		caller, ok := CallerFromContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "idempotency key requires an authenticated caller")
		}
		scoped := caller.String() + ":" + key
		cacheKey := idempotencyKeyPrefix + scoped
		lockKey := idempotencyLockPrefix + scoped
		log := logger.With(zap.String("idempotency_key", key), zap.Stringer("caller_id", caller))

		fingerprint, err := requestFingerprint(req)
		if err != nil {
			log.Error("failed to fingerprint request", zap.Error(err))
			return nil, status.Error(codes.Internal, "internal error")
		}

		// Previously processed
		if entry, err := cachedEntry(ctx, rdb, cacheKey); err != nil {
			log.Error("idempotency cache lookup failed", zap.Error(err))
			return nil, status.Error(codes.Unavailable, "idempotency cache unavailable")
		} else if entry != nil {
			if entry.fingerprint != fingerprint {
				log.Warn("idempotency key reused with a different request")
				return nil, status.Error(codes.InvalidArgument, "idempotency key was already used with a different request")
			}
			log.Info("idempotency cache hit")
			_ = grpc.SetHeader(ctx, metadata.Pairs(IdempotencyHitKey, "true"))
			return entry.response, nil
		}

		acquired, err := rdb.SetNX(ctx, lockKey, "processing", idempotencyLockTimeout).Result()
		if err != nil {
			log.Error("idempotency lock acquisition failed", zap.Error(err))
			return nil, status.Error(codes.Unavailable, "idempotency cache unavailable")
		}
		if !acquired {
			log.Warn("concurrent request with the same idempotency key")
			return nil, status.Error(codes.Aborted, "a request with this idempotency key is currently being processed")
		}

		defer func() {
			// Released with a fresh context so a cancelled request still unlocks
			if err := rdb.Del(context.WithoutCancel(ctx), lockKey).Err(); err != nil {
				log.Warn("failed to release idempotency lock", zap.Error(err))
			}
		}()

		resp, err := handler(ctx, req)
		if err != nil {
			return resp, err
		}

		msg, ok := resp.(*structpb.Struct)
		if !ok {
			return resp, nil
		}
		payload, err := protojson.Marshal(msg)
		if err != nil {
			log.Warn("failed to encode response for idempotency cache", zap.Error(err))
			return resp, nil
		}
		if err := storeEntry(context.WithoutCancel(ctx), rdb, cacheKey, fingerprint, payload, ttl); err != nil {
			log.Warn("failed to cache response", zap.Error(err))
		}
		return resp, nil
	}
}

func idempotencyKeyFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(IdempotencyKey)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

type cacheEntry struct {
	fingerprint string
	response    *structpb.Struct
}

// cachedEntry returns nil, nil on a cache miss
func cachedEntry(ctx context.Context, rdb redis.Cmdable, cacheKey string) (*cacheEntry, error) {
	fields, err := rdb.HGetAll(ctx, cacheKey).Result()
	if err != nil {
		return nil, err
	}
	payload, ok := fields[responseField]
	if !ok {
		return nil, nil
	}

	resp := &structpb.Struct{}
	if err := protojson.Unmarshal([]byte(payload), resp); err != nil {
		return nil, err
	}
	return &cacheEntry{fingerprint: fields[fingerprintField], response: resp}, nil
}

func storeEntry(ctx context.Context, rdb redis.Cmdable, cacheKey, fingerprint string, payload []byte, ttl time.Duration) error {
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, cacheKey, fingerprintField, fingerprint, responseField, payload)
		pipe.Expire(ctx, cacheKey, ttl)
		return nil
	})
	return err
}

// requestFingerprint hashes the deterministic wire form of req
func requestFingerprint(req interface{}) (string, error) {
	msg, ok := req.(proto.Message)
	if !ok {
		return "", nil
	}
	raw, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
