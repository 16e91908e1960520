// config/config.go - Environment driven configuration
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config holds the process configuration.
// Environment variables are parsed with the ZENTRO_ prefix, e.g. ZENTRO_DATABASE_URL.
type Config struct {
	Port        string   `envconfig:"PORT" default:"3000"`
	CORSOrigins string   `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty   bool     `envconfig:"LOG_PRETTY" default:"false"`
	Timezone    string   `envconfig:"TIMEZONE" default:"UTC"`
	JWTSecret   string   `envconfig:"JWT_SECRET"`
	AdminUsers  []string `envconfig:"ADMIN_USER_IDS"`

	// Database
	DatabaseURL     string        `envconfig:"DATABASE_URL" default:"host=localhost port=5432 user=postgres dbname=zentro sslmode=disable"`
	DBMaxOpenConns  int           `envconfig:"DB_MAX_OPEN_CONNS" default:"50"`
	DBMaxIdleConns  int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnLifetime  time.Duration `envconfig:"DB_CONN_LIFETIME" default:"1h"`
	DBLogSQL        bool          `envconfig:"DB_LOG_SQL" default:"false"`
	StartingBalance int           `envconfig:"STARTING_BALANCE" default:"1000"`

	// Rate limiting (tokens per window)
	RateLimitMax          int           `envconfig:"RATE_LIMIT_MAX" default:"100"`
	RateLimitWindow       time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
	CompanionRateLimitMax int           `envconfig:"COMPANION_RATE_LIMIT_MAX" default:"20"`
	CompanionRateWindow   time.Duration `envconfig:"COMPANION_RATE_LIMIT_WINDOW" default:"1m"`

	// Text generation
	OpenAIAPIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel      string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIMaxRetries uint64        `envconfig:"OPENAI_MAX_RETRIES" default:"3"`
	OpenAITimeout    time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`

	// Background jobs (cron specs with a seconds field)
	PayoutSweepSpec  string `envconfig:"PAYOUT_SWEEP_SPEC" default:"*/30 * * * * *"`
	PayoutBatchSize  int    `envconfig:"PAYOUT_BATCH_SIZE" default:"100"`
	QuestExpirySpec  string `envconfig:"QUEST_EXPIRY_SPEC" default:"0 */5 * * * *"`
	EventBufferSize  int    `envconfig:"EVENT_BUFFER_SIZE" default:"32"`

	dotenvMissing bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	envErr := godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ZENTRO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Reported by LogSummary once a logger exists.
	cfg.dotenvMissing = envErr != nil
	return &cfg, nil
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("ZENTRO_JWT_SECRET is required")
	}
	if c.RateLimitMax <= 0 || c.CompanionRateLimitMax <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.RateLimitWindow <= 0 || c.CompanionRateWindow <= 0 {
		return errors.New("rate limit windows must be positive")
	}
	if c.PayoutBatchSize <= 0 {
		return errors.New("ZENTRO_PAYOUT_BATCH_SIZE must be positive")
	}
	if c.StartingBalance < 0 {
		return errors.New("ZENTRO_STARTING_BALANCE must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid ZENTRO_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the timezone that defines calendar-day boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether userID is listed in ZENTRO_ADMIN_USER_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// LogSummary writes the effective configuration without secrets.
func (c *Config) LogSummary(log zerolog.Logger) {
	if c.dotenvMissing {
		log.Warn().Msg(".env file not found, using system environment variables")
	}
	log.Info().
		Str("port", c.Port).
		Str("timezone", c.Timezone).
		Int("admins", len(c.AdminUsers)).
		Int("db_max_open", c.DBMaxOpenConns).
		Int("starting_balance", c.StartingBalance).
		Bool("textgen_enabled", c.OpenAIAPIKey != "").
		Str("textgen_model", c.OpenAIModel).
		Str("payout_sweep", c.PayoutSweepSpec).
		Str("quest_expiry", c.QuestExpirySpec).
		Msg("configuration loaded")
}
