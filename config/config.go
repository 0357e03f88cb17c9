package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port        string
	MetricsPort string

	// Database configuration
	DatabaseURL string

	// Chain configuration
	ChainID uint64
	RPCURL  string

	// Custody signing key, hex encoded. Empty means the in-process ledger
	// backend is used instead of the EVM client.
	CustodyKey string

	// Messenger relay endpoint for outbound notifications
	MessengerURL string

	// Logging configuration
	LogLevel   string
	JSONOutput bool

	// HTTP timeouts
	ShutdownTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	chainID, err := strconv.ParseUint(getEnvOrDefault("CHAIN_ID", "7000"), 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid CHAIN_ID")
	}

	config := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		MetricsPort:     getEnvOrDefault("METRICS_PORT", "9090"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ChainID:         chainID,
		RPCURL:          getEnvOrDefault("RPC_URL", "http://localhost:8545"),
		CustodyKey:      os.Getenv("CUSTODY_KEY"),
		MessengerURL:    os.Getenv("MESSENGER_URL"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		JSONOutput:      getEnvOrDefault("LOG_FORMAT", "json") == "json",
		ShutdownTimeout: 10 * time.Second,
	}

	return config, nil
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
