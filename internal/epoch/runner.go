/*

Runner is the periodic governance loop: every epoch it rebalances the emission
rates from the current voting weights, snapshots the whole engine, syncs the
metrics gauges and persists the snapshot to the audit store when one is
configured. The engine itself never depends on the runner; a deployment that
only ever calls rebalance over HTTP works without it.

*/

package epoch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solstice-fi/emissary/internal/farm"
	"github.com/solstice-fi/emissary/internal/logger"
	"github.com/solstice-fi/emissary/internal/metrics"
	"github.com/solstice-fi/emissary/internal/types"
)

// AuditStore persists epoch results. Implementations are observational only:
// a store failure degrades persistence, never the engine state.
type AuditStore interface {
	// IncrementEpochNumber advances the persistent epoch counter and returns
	// the new value.
	IncrementEpochNumber() (int, error)

	// SaveEngineSnapshot stores one epoch's engine snapshot.
	SaveEngineSnapshot(epochNumber int, epochID string, snapshot types.EngineSnapshot) (int64, error)
}

// Runner drives the rebalance epochs with all its dependencies.
type Runner struct {
	logger     zerolog.Logger
	controller *farm.Controller
	meters     *metrics.Metrics
	store      AuditStore

	// Runtime state
	epochCount int
}

// Config holds the configuration for creating a new Runner instance.
type Config struct {
	// Controller is the engine the runner rebalances. Required.
	Controller *farm.Controller

	// Meters, when set, receive the epoch counter and snapshot gauges.
	Meters *metrics.Metrics

	// Store, when set, persists the epoch counter and engine snapshots.
	Store AuditStore
}

// NewRunner creates a new epoch runner with dependency injection.
func NewRunner(cfg Config) (*Runner, error) {
	if err := validateRunnerConfig(cfg); err != nil {
		return nil, fmt.Errorf("runner configuration validation failed: %w", err)
	}

	runner := &Runner{
		logger:     logger.GetForComponent("epoch_runner"),
		controller: cfg.Controller,
		meters:     cfg.Meters,
		store:      cfg.Store,
	}

	runner.logger.Info().
		Bool("metrics", cfg.Meters != nil).
		Bool("audit_store", cfg.Store != nil).
		Msg("Epoch runner created")

	return runner, nil
}

// validateRunnerConfig validates the runner configuration.
func validateRunnerConfig(cfg Config) error {
	if cfg.Controller == nil {
		return fmt.Errorf("controller cannot be nil")
	}
	return nil
}

// RunLoop starts the epoch loop with the specified interval. The first epoch
// runs immediately; the loop returns when ctx is cancelled.
func (r *Runner) RunLoop(ctx context.Context, interval time.Duration) {
	r.logger.Info().
		Dur("interval", interval).
		Msg("Starting epoch loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.epochCount++
	r.RunEpoch(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Int("epochs_run", r.epochCount).Msg("Epoch loop stopped due to context cancellation")
			return
		case <-ticker.C:
			r.epochCount++
			r.RunEpoch(ctx)
		}
	}
}

// RunEpoch executes one complete epoch: rebalance, snapshot, metrics sync,
// persistence. Nothing here can fail the engine; persistence errors are
// logged and the epoch continues.
func (r *Runner) RunEpoch(ctx context.Context) {
	epochStartTime := time.Now()

	// Unique epoch ID for tracing logs across the entire epoch.
	epochID := uuid.New().String()
	epochLogger := r.logger.With().Str("epoch_id", epochID).Logger()

	epochLogger.Info().Msg("--- Starting epoch ---")

	// --- Step 1: Rebalance emission rates from current weights ---
	applied := r.controller.Rebalance()
	if applied {
		epochLogger.Info().Msg("Step 1: Emission rates recomputed from voting weights.")
	} else {
		epochLogger.Info().Msg("Step 1: No voting weight allocated; rates unchanged.")
	}

	// --- Step 2: Snapshot the engine ---
	snapshot := r.controller.Snapshot()
	epochLogger.Info().
		Int("pools", len(snapshot.Pools)).
		Int("positions", snapshot.PositionCount).
		Int("voters", snapshot.VoterCount).
		Str("total_rate", snapshot.TotalEmissionRate.String()).
		Str("total_weight", snapshot.TotalWeight.String()).
		Str("reward_escrow", snapshot.RewardEscrow.String()).
		Msg("Step 2: Engine snapshot captured.")

	if r.meters != nil {
		r.meters.ObserveSnapshot(snapshot)
		r.meters.CountEpoch()
	}

	// --- Step 3: Persist to the audit store ---
	if r.store != nil {
		epochNumber := r.getEpochNumber(epochLogger)
		snapshotID, err := r.store.SaveEngineSnapshot(epochNumber, epochID, snapshot)
		if err != nil {
			epochLogger.Error().Err(err).Msg("Failed to save engine snapshot to audit store")
		} else {
			epochLogger.Info().
				Int64("snapshot_id", snapshotID).
				Int("epoch_number", epochNumber).
				Msg("Step 3: Engine snapshot persisted.")
		}
	}

	epochLogger.Info().
		Bool("rates_rebalanced", applied).
		Str("epoch_duration", time.Since(epochStartTime).String()).
		Msg("--- Epoch completed ---")
}

// getEpochNumber advances the persistent epoch counter, falling back to the
// in-process count when the store is unavailable.
func (r *Runner) getEpochNumber(epochLogger zerolog.Logger) int {
	epochNumber, err := r.store.IncrementEpochNumber()
	if err != nil {
		epochLogger.Error().Err(err).Msg("Failed to increment epoch number, using in-process count")
		return r.epochCount
	}
	return epochNumber
}
