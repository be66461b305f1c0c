// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool for the audit store. The engine's
// in-memory state stays authoritative; everything written here is
// observational and safe to rebuild.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL audit store!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		-- Append-only log of every settled engine operation.
		-- Amounts are NUMERIC(78, 0): wide enough for any 256-bit integer
		-- the engine can produce, stored exact.
		CREATE TABLE IF NOT EXISTS farm_events (
			event_id UUID PRIMARY KEY,
			kind VARCHAR(40) NOT NULL,
			pool_id BIGINT NOT NULL DEFAULT 0,
			account TEXT NOT NULL DEFAULT '',
			denom TEXT NOT NULL DEFAULT '',
			amount NUMERIC(78, 0) NOT NULL DEFAULT 0,
			event_timestamp TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_farm_events_timestamp ON farm_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_farm_events_pool_id ON farm_events(pool_id);
		CREATE INDEX IF NOT EXISTS idx_farm_events_account ON farm_events(account);
		CREATE INDEX IF NOT EXISTS idx_farm_events_kind ON farm_events(kind);

		-- One row per epoch run: the full engine state after rebalancing.
		CREATE TABLE IF NOT EXISTS engine_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			epoch_number INTEGER NOT NULL,
			epoch_id UUID,
			snapshot_timestamp TIMESTAMPTZ NOT NULL,
			emissions_started BOOLEAN NOT NULL,
			total_emission_rate NUMERIC(78, 0) NOT NULL,
			total_weight NUMERIC(78, 0) NOT NULL,
			reward_escrow NUMERIC(78, 0) NOT NULL,
			position_count INTEGER NOT NULL,
			voter_count INTEGER NOT NULL,
			pools JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_engine_snapshots_timestamp ON engine_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_engine_snapshots_epoch ON engine_snapshots(epoch_number DESC);

		-- Epoch counter table for persistent global epoch tracking
		CREATE TABLE IF NOT EXISTS epoch_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_epoch INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO epoch_counter (id, current_epoch)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Audit store schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
