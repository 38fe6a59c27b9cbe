package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Clashic node.
type Config struct {
	// Network
	Network string

	// Logging
	LogLevel string
	LogFile  string

	// RPC
	RPCAddr           string
	RPCRequestTimeout time.Duration

	// Database
	DataDir string

	// ConnectGenesisCoinbase controls whether the genesis coinbase output
	// is inserted into the UTXO set when the chainstate is first
	// initialized.  The value is resolved once at startup and is
	// immutable for the process lifetime; on an already-initialized data
	// directory the persisted chainstate wins.
	//
	// Default: false, matching the historical convention that the
	// genesis coinbase is not spendable and never enters the UTXO set.
	ConnectGenesisCoinbase bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Network: getEnv("NETWORK", "mainnet"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		RPCAddr:           getEnv("RPC_ADDR", "0.0.0.0:8332"),
		RPCRequestTimeout: getEnvDuration("RPC_REQUEST_TIMEOUT", 30*time.Second),

		DataDir: getEnv("DATA_DIR", "."),

		ConnectGenesisCoinbase: getEnvBool("CONNECT_GENESIS_COINBASE", false),
	}
}

// getEnv gets an environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets an environment variable as bool or returns default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as duration or returns default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
