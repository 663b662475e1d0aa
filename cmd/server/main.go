package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcadapter "github.com/simaogato/transferflow-backend/internal/adapter/grpc"
	"github.com/simaogato/transferflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/transferflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/transferflow-backend/internal/config"
	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/logging"
	"github.com/simaogato/transferflow-backend/internal/telemetry"
	"github.com/simaogato/transferflow-backend/internal/usecase/account"
	"github.com/simaogato/transferflow-backend/internal/usecase/history"
	"github.com/simaogato/transferflow-backend/internal/usecase/seeder"
	"github.com/simaogato/transferflow-backend/internal/usecase/transfer"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	os.Exit(serve())
}

// serve runs the server and returns the process exit code. Deferred
// cleanup, including the final logger sync, runs before main exits.
func serve() int {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Printf("Failed to build logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// 2. Tracing, installed before the services pick up their tracers
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	// 3. Setup the ledger store
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. Initialize services (use cases)
	policy := cfg.SettlementPolicy()
	accountService := account.NewAccountService(store.Accounts(), logger)
	transferService := transfer.NewTransferService(store, policy, logger)
	historyService := history.NewHistoryService(store.Transfers(), logger)

	// Seed the treasury account
	systemSeeder := seeder.NewSystemSeeder(store.Accounts(), cfg.TreasuryOpeningBalance, logger)
	if err := systemSeeder.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed treasury account: %w", err)
	}

	// 5. Build the interceptor chain
	interceptors := []grpclib.UnaryServerInterceptor{
		grpcadapter.RecoveryInterceptor(logger),
		grpcadapter.TracingInterceptor(),
		grpcadapter.LoggingInterceptor(logger),
		grpcadapter.AuthInterceptor(cfg.APIToken),
	}
	if cfg.IdempotencyEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		interceptors = append(interceptors, grpcadapter.IdempotencyInterceptor(rdb, cfg.IdempotencyTTL, logger))
		logger.Info("idempotency cache enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	// 6. Start gRPC server
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(interceptors...))
	grpcadapter.RegisterTransferServiceServer(grpcServer,
		grpcadapter.NewServer(accountService, transferService, historyService))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening",
			zap.String("addr", cfg.GRPCAddr),
			zap.String("store", cfg.StoreDriver),
			zap.String("auto_approval_threshold", policy.AutoApprovalThreshold.String()),
		)
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		logger.Info("shutting down gracefully", zap.Stringer("signal", sig))
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")
		return nil
	case err := <-serveErr:
		return fmt.Errorf("gRPC server failed: %w", err)
	}
}

// openStore returns the configured LedgerStore and a function releasing it
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.LedgerStore, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using the in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
	return postgres.NewStore(db), closeDB, nil
}
