// Package config loads the service configuration from environment variables.
// envconfig maps variables onto the Config struct fields.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds ALL application settings.
type Config struct {
	// --- HTTP ---
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	HTTPIdleTimeout  time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"1m"`
	// How many requests are served at once. Anything above waits in chi's throttle backlog.
	HTTPMaxInflight int `envconfig:"HTTP_MAX_INFLIGHT" default:"64"`

	// --- Database ---
	// Inside docker-compose the host is the service name, override DB_HOST=localhost for local runs.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"crackedgrain"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"crackedgrain"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"America/Chicago"`

	// --- Auth ---
	AuthJWTSecret       string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
	AuthJWTIssuer       string        `envconfig:"AUTH_JWT_ISSUER" default:"crackedgrain.shop"`
	AuthTokenTTL        time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	AuthMaxFailedLogins int           `envconfig:"AUTH_MAX_FAILED_LOGINS" default:"5"`
	AuthLockoutWindow   time.Duration `envconfig:"AUTH_LOCKOUT_WINDOW" default:"1h"`
	// Registrations per minute across the whole service.
	AuthRegisterPerMinute int `envconfig:"AUTH_REGISTER_PER_MINUTE" default:"10"`

	// --- Free tier ceilings ---
	LimitFreeBatches   int  `envconfig:"LIMIT_FREE_BATCHES" default:"5"`
	LimitFreeInventory int  `envconfig:"LIMIT_FREE_INVENTORY" default:"20"`
	LimitFreeRecipes   int  `envconfig:"LIMIT_FREE_RECIPES" default:"3"`
	LimitsStrict       bool `envconfig:"LIMITS_STRICT" default:"false"`

	// --- Loyalty ---
	// Upper bound for one ledger write; the write is detached from the client request.
	LoyaltyWriteTimeout time.Duration `envconfig:"LOYALTY_WRITE_TIMEOUT" default:"5s"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"120"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	JobsExpirySpec    string `envconfig:"JOBS_EXPIRY_SPEC" default:"0 * * * *"`
	JobsReconcileSpec string `envconfig:"JOBS_RECONCILE_SPEC" default:"0 3 * * *"`

	// --- Telemetry ---
	OTLPEndpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"crackedgrain-storefront"`

	// --- Feature Flags ---
	FeatureExpirySweepEnabled bool `envconfig:"FEATURE_EXPIRY_SWEEP_ENABLED" default:"true"`
	FeatureReconcileEnabled   bool `envconfig:"FEATURE_RECONCILE_ENABLED" default:"true"`
}

// DatabaseDSN returns the PostgreSQL connection string in URL form.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsProduction reports whether the service runs outside development.
func (c *Config) IsProduction() bool {
	return !strings.EqualFold(c.AppEnv, "development")
}

func (c *Config) Validate() error {
	if len(c.AuthJWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.AuthTokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be > 0")
	}
	if c.AuthMaxFailedLogins <= 0 {
		return fmt.Errorf("AUTH_MAX_FAILED_LOGINS must be > 0")
	}
	if c.HTTPMaxInflight <= 0 {
		return fmt.Errorf("HTTP_MAX_INFLIGHT must be > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.LimitFreeBatches < 0 || c.LimitFreeInventory < 0 || c.LimitFreeRecipes < 0 {
		return fmt.Errorf("LIMIT_FREE_* must not be negative")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.LoyaltyWriteTimeout <= 0 {
		return fmt.Errorf("LOYALTY_WRITE_TIMEOUT must be > 0")
	}
	return nil
}

// Load reads environment variables into Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
