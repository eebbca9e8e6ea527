package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/iam/internal/db"
	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/tokens"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	DBDriver    string
	DatabaseURL string

	JWTSecret           []byte
	TokenExpirationDays int
	RevokeOnRefresh     bool

	DefaultRole domain.RoleName
	BcryptCost  int

	KafkaBrokers    []string
	UserEventsTopic string

	RevocationSweepInterval time.Duration
}

// Load reads .env when present, then the process environment, and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv not loaded, using process environment", "err", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error

	days, err := EnvIntDefault("TOKEN_EXPIRATION_DAYS", 7)
	errs = append(errs, err)
	cost, err := EnvIntDefault("BCRYPT_COST", 10)
	errs = append(errs, err)
	sweep, err := EnvDurationDefault("REVOCATION_SWEEP_INTERVAL", time.Hour)
	errs = append(errs, err)
	revokeOnRefresh, err := EnvBoolDefault("REVOKE_ON_REFRESH", false)
	errs = append(errs, err)
	role, err := domain.ParseRoleName(EnvDefault("DEFAULT_ROLE", string(domain.RoleBuyer)))
	if err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_ROLE: %w", err))
	}

	cfg := &Config{
		HTTPAddr: EnvDefault("HTTP_ADDR", ":8080"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(EnvDefault("DB_DRIVER", db.DriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:           []byte(os.Getenv("JWT_SECRET")),
		TokenExpirationDays: days,
		RevokeOnRefresh:     revokeOnRefresh,

		DefaultRole: role,
		BcryptCost:  cost,

		KafkaBrokers:    CSV(os.Getenv("KAFKA_BROKERS")),
		UserEventsTopic: EnvDefault("USER_EVENTS_TOPIC", "user-registered"),

		RevocationSweepInterval: sweep,
	}

	errs = append(errs, cfg.validate())
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	errs = append(errs, MustNonEmpty(c.DatabaseURL, "DATABASE_URL"))
	errs = append(errs, MustNonEmptyBytes(c.JWTSecret, "JWT_SECRET"))
	if n := len(c.JWTSecret); n > 0 && n < tokens.MinSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", tokens.MinSecretBytes, n))
	}
	if c.TokenExpirationDays < 1 {
		errs = append(errs, fmt.Errorf("TOKEN_EXPIRATION_DAYS must be >= 1, got %d", c.TokenExpirationDays))
	}
	if c.DBDriver != db.DriverPostgres && c.DBDriver != db.DriverSQLite {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, c.DBDriver))
	}
	if c.RevocationSweepInterval < 0 {
		errs = append(errs, fmt.Errorf("REVOCATION_SWEEP_INTERVAL must not be negative"))
	}
	return errors.Join(errs...)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: not an integer: %q", key, v)
	}
	return n, nil
}

func EnvBoolDefault(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: not a boolean: %q", key, v)
	}
	return b, nil
}

func EnvDurationDefault(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: not a duration: %q", key, v)
	}
	return d, nil
}
