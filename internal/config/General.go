package config

import (
	"errors"
	"strconv"

	"os"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort is the TCP port the HTTP API listens on.
	WebPort string

	// AdminAPIToken gates the administrative HTTP routes (pool registration,
	// reserved-weight release, emission start). In-process callers are trusted;
	// the network surface is not.
	AdminAPIToken string

	// EpochIntervalSeconds is the cadence of the periodic rebalance loop.
	EpochIntervalSeconds int64

	// AuditStoreEnabled toggles the optional Postgres audit store. The engine
	// itself never reads from it.
	AuditStoreEnabled bool

	// Database connection settings, required only when AuditStoreEnabled.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. AdminAPIToken and EpochIntervalSeconds are required;
// the rest carry defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	AdminAPIToken, err = getEnv("ADMIN_API_TOKEN")
	if err != nil {
		return err
	}

	EpochIntervalSeconds, err = getEnvAsInt64("EPOCH_INTERVAL_SECONDS")
	if err != nil {
		return err
	}
	if EpochIntervalSeconds <= 0 {
		return errors.New("EPOCH_INTERVAL_SECONDS must be positive")
	}

	WebPort = getEnvOrDefault("WEB_PORT", "8080")

	AuditStoreEnabled, err = getEnvAsBool("AUDIT_STORE_ENABLED", false)
	if err != nil {
		return err
	}

	if AuditStoreEnabled {
		if err := loadDatabaseConfig(); err != nil {
			return err
		}
	}

	// Optional engine parameter overrides for test networks.
	if denom := os.Getenv("REWARD_DENOM"); denom != "" {
		DefaultFarmParameters.RewardDenom = denom
	}
	if windowStr := os.Getenv("EMISSION_WINDOW_SECONDS"); windowStr != "" {
		window, err := strconv.ParseInt(windowStr, 10, 64)
		if err != nil || window <= 0 {
			return errors.New("EMISSION_WINDOW_SECONDS must be a positive integer, got: " + windowStr)
		}
		DefaultFarmParameters.EmissionWindowSeconds = window
	}

	log.Debug().
		Str("WebPort", WebPort).
		Int64("EpochIntervalSeconds", EpochIntervalSeconds).
		Bool("AuditStoreEnabled", AuditStoreEnabled).
		Msg("Configuration loaded successfully.")

	return nil
}

// loadDatabaseConfig loads the Postgres settings for the audit store.
func loadDatabaseConfig() error {
	var err error

	DBHost = getEnvOrDefault("DB_HOST", "localhost")
	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	DBUser, err = getEnv("DB_USER")
	if err != nil {
		return err
	}

	DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}

	DBPassword = os.Getenv("DB_PASSWORD")

	portStr := getEnvOrDefault("DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return errors.New("DB_PORT must be a valid port number, got: " + portStr)
	}
	DBPort = port

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back to
// def when unset or empty.
func getEnvOrDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsBool retrieves an environment variable as a bool, falling back to
// def when unset.
func getEnvAsBool(key string, def bool) (bool, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return def, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, errors.New("environment variable " + key + " must be a valid bool, got: " + valueStr)
	}
	return value, nil
}
