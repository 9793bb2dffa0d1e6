// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Escrow identity: the address that holds assets while an auction runs.
	EscrowAddress string

	// Auction settings
	MinStartingPrice string
	MaxBid           string
	SettleInterval   int // seconds between settlement sweeps

	// Security
	AdminSecret  string
	RateLimitRPM int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint, tracing disabled if empty
}

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultEscrowAddress  = "0x0000000000000000000000000000000000000a0c"
	DefaultMinStart       = "0.000001"
	DefaultMaxBid         = "1000000"
	DefaultSettleInterval = 30
	DefaultRateLimit      = 60
)

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		EscrowAddress:    getEnv("ESCROW_ADDRESS", DefaultEscrowAddress),
		MinStartingPrice: getEnv("MIN_STARTING_PRICE", DefaultMinStart),
		MaxBid:           getEnv("MAX_BID", DefaultMaxBid),
		SettleInterval:   getEnvInt("SETTLE_INTERVAL", DefaultSettleInterval),
		AdminSecret:      os.Getenv("ADMIN_SECRET"),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.EscrowAddress == "" {
		return fmt.Errorf("ESCROW_ADDRESS is required")
	}
	if c.SettleInterval <= 0 {
		return fmt.Errorf("SETTLE_INTERVAL must be positive, got %d", c.SettleInterval)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
