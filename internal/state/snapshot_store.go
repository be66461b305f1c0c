// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solstice-fi/emissary/internal/types"
)

// StoredSnapshot is an engine snapshot as persisted, with its row identity.
type StoredSnapshot struct {
	SnapshotID  int64                `json:"snapshot_id"`
	EpochNumber int                  `json:"epoch_number"`
	EpochID     string               `json:"epoch_id,omitempty"`
	Snapshot    types.EngineSnapshot `json:"snapshot"`
}

// EpochStore adapts the audit store to the epoch runner's persistence
// interface, the way Recorder adapts it to the engine's event sink.
type EpochStore struct{}

func (EpochStore) IncrementEpochNumber() (int, error) {
	return IncrementEpochNumber()
}

func (EpochStore) SaveEngineSnapshot(epochNumber int, epochID string, snapshot types.EngineSnapshot) (int64, error) {
	return SaveEngineSnapshot(epochNumber, epochID, snapshot)
}

// SaveEngineSnapshot saves a complete engine snapshot to the database.
func SaveEngineSnapshot(epochNumber int, epochID string, snapshot types.EngineSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	poolsJSON, err := json.Marshal(snapshot.Pools)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal pools: %w", err)
	}

	query := `
		INSERT INTO engine_snapshots (
			epoch_number, epoch_id, snapshot_timestamp, emissions_started,
			total_emission_rate, total_weight, reward_escrow,
			position_count, voter_count, pools
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING snapshot_id;
	`

	// Manual epochs run outside the counter and carry no epoch id.
	var epochRef interface{}
	if epochID != "" {
		epochRef = epochID
	}

	var snapshotID int64
	err = DB.QueryRow(
		query,
		epochNumber, epochRef, snapshot.Timestamp, snapshot.EmissionsStarted,
		snapshot.TotalEmissionRate.String(), snapshot.TotalWeight.String(), snapshot.RewardEscrow.String(),
		snapshot.PositionCount, snapshot.VoterCount, poolsJSON,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save engine snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("epoch_number", epochNumber).
		Int("pool_count", len(snapshot.Pools)).
		Str("reward_escrow", snapshot.RewardEscrow.String()).
		Msg("Engine snapshot saved to database")

	return snapshotID, nil
}
