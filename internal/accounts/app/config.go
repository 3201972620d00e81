package app

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	TokenFormatOpaque = "opaque"
	TokenFormatJWT    = "jwt"

	TokenBackendDatabase = "database"
	TokenBackendRedis    = "redis"
)

type Config struct {
	Port      int    `env:"PORT" env-default:"8080" env-description:"HTTP server port"`
	Env       string `env:"ENV" env-default:"dev" env-description:"Environment (dev, staging, prod)"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info" env-description:"Log level (debug, info, warn, error)"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json" env-description:"Log format (json, text)"`

	DatabaseDriver string `env:"DATABASE_DRIVER" env-default:"sqlite" env-description:"sqlite or postgres"`
	DatabaseFile   string `env:"DATABASE_FILE" env-default:"accounts.db" env-description:"SQLite database file"`
	DatabaseURL    string `env:"DATABASE_URL" env-description:"Postgres DSN, required with the postgres driver"`
	PepperFile     string `env:"PEPPER_FILE" env-default:"pepper" env-description:"File holding the password pepper, created on first start"`

	TokenFormat            string `env:"TOKEN_FORMAT" env-default:"opaque" env-description:"opaque or jwt"`
	TokenBackend           string `env:"TOKEN_BACKEND" env-default:"database" env-description:"Where sessions are kept: database or redis"`
	TokenExpirationMinutes int    `env:"TOKEN_EXPIRATION_MINUTES" env-default:"1440" env-description:"Token lifetime in minutes"`
	TokenIssuer            string `env:"TOKEN_ISSUER" env-default:"accounts" env-description:"iss claim of JWT tokens"`
	TokenSigningKeyFile    string `env:"TOKEN_SIGNING_KEY_FILE" env-default:"signing.pem" env-description:"Ed25519 PKCS8 key for JWT tokens, created on first start"`

	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379" env-description:"Redis host:port"`
	RedisPassword string `env:"REDIS_PASSWORD" env-description:"Redis password"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0" env-description:"Redis database number"`

	APIPrefix            string `env:"API_PREFIX" env-description:"Path prefix for every route, e.g. /api"`
	ExposeInternalErrors bool   `env:"EXPOSE_INTERNAL_ERRORS" env-default:"true" env-description:"Include the cause of 500s in the response body"`

	SeedAdminUsername string `env:"SEED_ADMIN_USERNAME" env-description:"Create this user when the database has no users"`
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD" env-description:"Generated and printed once when empty"`
	SeedAdminName     string `env:"SEED_ADMIN_NAME"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s" env-description:"Graceful shutdown timeout"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" env-default:"1h" env-description:"How often expired tokens are purged"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects combinations the application cannot start with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DatabaseDriver, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.DatabaseURL, requiredIf(c.DatabaseDriver == DriverPostgres)...),
		validation.Field(&c.DatabaseFile, requiredIf(c.DatabaseDriver == DriverSQLite)...),
		validation.Field(&c.TokenFormat, validation.In(TokenFormatOpaque, TokenFormatJWT)),
		validation.Field(&c.TokenBackend, validation.In(TokenBackendDatabase, TokenBackendRedis)),
		validation.Field(&c.TokenExpirationMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.TokenSigningKeyFile, requiredIf(c.TokenFormat == TokenFormatJWT)...),
		validation.Field(&c.RedisAddr, requiredIf(c.TokenBackend == TokenBackendRedis)...),
		validation.Field(&c.PepperFile, validation.Required),
	)
}

func requiredIf(cond bool) []validation.Rule {
	if cond {
		return []validation.Rule{validation.Required}
	}
	return nil
}

// TokenTTL is the lifetime of a login token.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpirationMinutes) * time.Minute
}

// Usage describes every environment variable, for --help output.
func Usage() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}
