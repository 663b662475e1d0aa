package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	// Storage
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBUser        string `env:"DB_USER" envDefault:"postgres"`
	DBPassword    string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName        string `env:"DB_NAME" envDefault:"transferflow"`
	DBSSLMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Server
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":8080"`
	APIToken string `env:"API_TOKEN" envDefault:"dev-token"`

	// Settlement policy
	AutoApprovalThreshold  decimal.Decimal `env:"AUTO_APPROVAL_THRESHOLD" envDefault:"50000"`
	MaxTransferAmount      decimal.Decimal `env:"MAX_TRANSFER_AMOUNT" envDefault:"10000000000000.00"`
	TreasuryOpeningBalance decimal.Decimal `env:"TREASURY_OPENING_BALANCE" envDefault:"0"`

	// Idempotency cache, disabled when REDIS_ADDR is empty
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Logging
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	// Tracing, spans are exported only when an OTLP endpoint is set
	ServiceName      string  `env:"OTEL_SERVICE_NAME" envDefault:"transferflow"`
	OTLPEndpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRatio float64 `env:"TRACE_SAMPLE_RATIO" envDefault:"1"`
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.buildDatabaseURL()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildDatabaseURL assembles a postgres:// URL from the individual DB_* variables
func (c *Config) buildDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}

	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN cannot be empty"))
	}
	if err := c.SettlementPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.TreasuryOpeningBalance.IsNegative() || !domain.HasValidScale(c.TreasuryOpeningBalance) {
		errs = append(errs, fmt.Errorf("TREASURY_OPENING_BALANCE must be non-negative with at most %d decimals", domain.MaxFractionalDigits))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("TRACE_SAMPLE_RATIO must be between 0 and 1, got %v", c.TraceSampleRatio))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SettlementPolicy returns the transfer settlement policy configured for the engine
func (c *Config) SettlementPolicy() domain.SettlementPolicy {
	return domain.SettlementPolicy{
		AutoApprovalThreshold: c.AutoApprovalThreshold,
		MaxAmount:             c.MaxTransferAmount,
	}
}

// IdempotencyEnabled reports whether a Redis address was configured
func (c *Config) IdempotencyEnabled() bool {
	return c.RedisAddr != ""
}
