package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/solstice-fi/emissary/internal/types"
)

// EngineSummary represents high-level engine activity statistics
type EngineSummary struct {
	TotalEvents      int64  `json:"total_events"`
	Deposits         int64  `json:"deposits"`
	Withdrawals      int64  `json:"withdrawals"`
	RewardPayouts    int64  `json:"reward_payouts"`
	TotalRewardsPaid string `json:"total_rewards_paid"`
	CurrentEpoch     int    `json:"current_epoch"`
	LastSnapshotAt   string `json:"last_snapshot_at,omitempty"`
}

const eventColumns = `event_id, kind, pool_id, account, denom, amount, event_timestamp`

// scanEventRows drains a farm_events result set. Rows that fail to scan or
// parse are logged and skipped so one bad row never hides the rest.
func scanEventRows(rows *sql.Rows) ([]types.Event, error) {
	var events []types.Event
	for rows.Next() {
		var event types.Event
		var kind string
		var poolID int64
		var amountStr string

		err := rows.Scan(&event.EventID, &kind, &poolID, &event.Account, &event.Denom, &amountStr, &event.Timestamp)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan event row")
			continue // Skip this row and continue with others
		}

		amount, ok := sdkmath.NewIntFromString(amountStr)
		if !ok {
			log.Error().Str("event_id", event.EventID).Str("amount", amountStr).Msg("Failed to parse event amount")
			continue
		}

		event.Kind = types.EventKind(kind)
		event.PoolID = types.PoolID(poolID)
		event.Amount = amount
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during event row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return events, nil
}

// GetRecentEvents retrieves recent engine events, newest first.
func GetRecentEvents(limit int) ([]types.Event, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT ` + eventColumns + `
		FROM farm_events
		ORDER BY recorded_at DESC
		LIMIT $1
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent events")
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, err
	}

	log.Info().Int("count", len(events)).Int("limit", limit).Msg("Retrieved recent events")
	return events, nil
}

// GetAccountEvents retrieves recent events for a single account, newest first.
func GetAccountEvents(account string, limit int) ([]types.Event, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT ` + eventColumns + `
		FROM farm_events
		WHERE account = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := DB.Query(query, account, limit)
	if err != nil {
		log.Error().Err(err).Str("account", account).Msg("Failed to query account events")
		return nil, fmt.Errorf("failed to query account events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, err
	}

	log.Info().Str("account", account).Int("count", len(events)).Msg("Retrieved account events")
	return events, nil
}

// GetPoolEvents retrieves recent events for a single pool, newest first.
func GetPoolEvents(poolID types.PoolID, limit int) ([]types.Event, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT ` + eventColumns + `
		FROM farm_events
		WHERE pool_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := DB.Query(query, int64(poolID), limit)
	if err != nil {
		log.Error().Err(err).Uint64("pool_id", uint64(poolID)).Msg("Failed to query pool events")
		return nil, fmt.Errorf("failed to query pool events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, err
	}

	log.Info().Uint64("pool_id", uint64(poolID)).Int("count", len(events)).Msg("Retrieved pool events")
	return events, nil
}

// GetRecentSnapshots retrieves recent engine snapshots with pagination
func GetRecentSnapshots(limit int) ([]StoredSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT
			snapshot_id, epoch_number, epoch_id, snapshot_timestamp, emissions_started,
			total_emission_rate, total_weight, reward_escrow,
			position_count, voter_count, pools
		FROM engine_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent snapshots")
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []StoredSnapshot
	for rows.Next() {
		stored, err := scanSnapshotRow(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan snapshot row")
			continue // Skip this row and continue with others
		}
		snapshots = append(snapshots, stored)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during snapshot row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Info().Int("count", len(snapshots)).Int("limit", limit).Msg("Retrieved recent snapshots")
	return snapshots, nil
}

// scanSnapshotRow rebuilds a stored snapshot from its row, including the
// NUMERIC amounts and the pools JSONB payload.
func scanSnapshotRow(rows *sql.Rows) (StoredSnapshot, error) {
	var stored StoredSnapshot
	var epochID sql.NullString
	var rateStr, weightStr, escrowStr string
	var poolsJSON []byte

	err := rows.Scan(
		&stored.SnapshotID, &stored.EpochNumber, &epochID,
		&stored.Snapshot.Timestamp, &stored.Snapshot.EmissionsStarted,
		&rateStr, &weightStr, &escrowStr,
		&stored.Snapshot.PositionCount, &stored.Snapshot.VoterCount,
		&poolsJSON,
	)
	if err != nil {
		return StoredSnapshot{}, err
	}

	if epochID.Valid {
		stored.EpochID = epochID.String
	}

	rate, ok := sdkmath.NewIntFromString(rateStr)
	if !ok {
		return StoredSnapshot{}, fmt.Errorf("failed to parse total_emission_rate %q", rateStr)
	}
	weight, ok := sdkmath.NewIntFromString(weightStr)
	if !ok {
		return StoredSnapshot{}, fmt.Errorf("failed to parse total_weight %q", weightStr)
	}
	escrow, ok := sdkmath.NewIntFromString(escrowStr)
	if !ok {
		return StoredSnapshot{}, fmt.Errorf("failed to parse reward_escrow %q", escrowStr)
	}
	stored.Snapshot.TotalEmissionRate = rate
	stored.Snapshot.TotalWeight = weight
	stored.Snapshot.RewardEscrow = escrow

	if len(poolsJSON) > 0 {
		if err := json.Unmarshal(poolsJSON, &stored.Snapshot.Pools); err != nil {
			return StoredSnapshot{}, fmt.Errorf("failed to unmarshal pools: %w", err)
		}
	}

	return stored, nil
}

// GetEngineSummary retrieves aggregated engine activity statistics
func GetEngineSummary() (*EngineSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &EngineSummary{TotalRewardsPaid: "0"}

	// Get aggregated counts from the event log
	query := `
		SELECT
			COUNT(*) as total_events,
			COUNT(CASE WHEN kind = 'DEPOSIT' THEN 1 END) as deposits,
			COUNT(CASE WHEN kind = 'WITHDRAW' THEN 1 END) as withdrawals,
			COUNT(CASE WHEN kind = 'REWARD_PAID' THEN 1 END) as reward_payouts,
			COALESCE(SUM(CASE WHEN kind = 'REWARD_PAID' THEN amount ELSE 0 END), 0)::text as total_rewards_paid
		FROM farm_events
	`

	err := DB.QueryRow(query).Scan(
		&summary.TotalEvents,
		&summary.Deposits,
		&summary.Withdrawals,
		&summary.RewardPayouts,
		&summary.TotalRewardsPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get event aggregates: %w", err)
	}

	// Get current epoch number
	currentEpoch, err := GetCurrentEpochNumber()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get current epoch for summary")
	} else {
		summary.CurrentEpoch = currentEpoch
	}

	// Get latest snapshot timestamp
	var lastSnapshot sql.NullString
	err = DB.QueryRow(`
		SELECT snapshot_timestamp FROM engine_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1
	`).Scan(&lastSnapshot)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Msg("Failed to get latest snapshot timestamp")
	}
	if lastSnapshot.Valid {
		summary.LastSnapshotAt = lastSnapshot.String
	}

	log.Info().
		Int64("totalEvents", summary.TotalEvents).
		Str("totalRewardsPaid", summary.TotalRewardsPaid).
		Int("currentEpoch", summary.CurrentEpoch).
		Msg("Retrieved engine summary")

	return summary, nil
}
