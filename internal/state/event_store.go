// ./internal/state/event_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/solstice-fi/emissary/internal/types"
)

// eventAmount renders an event amount for NUMERIC storage. Events that carry
// no amount (votes reset) hold a nil Int.
func eventAmount(amount sdkmath.Int) string {
	if amount.IsNil() {
		return "0"
	}
	return amount.String()
}

// SaveEvent persists a single engine event to the audit store.
func SaveEvent(event types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO farm_events (event_id, kind, pool_id, account, denom, amount, event_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	_, err := DB.Exec(
		query,
		event.EventID, string(event.Kind), int64(event.PoolID),
		event.Account, event.Denom, eventAmount(event.Amount), event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", event.EventID, err)
	}

	return nil
}

// SaveEvents persists a batch of events in a single transaction.
func SaveEvents(events []types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	stmt := `
		INSERT INTO farm_events (event_id, kind, pool_id, account, denom, amount, event_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	for _, event := range events {
		_, err = tx.Exec(
			stmt,
			event.EventID, string(event.Kind), int64(event.PoolID),
			event.Account, event.Denom, eventAmount(event.Amount), event.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save event %s: %w", event.EventID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit event batch: %w", err)
	}

	log.Debug().Int("count", len(events)).Msg("Saved event batch to audit store")
	return nil
}

// Recorder adapts the audit store to the engine's event sink interface. The
// engine swallows sink errors, so a database outage degrades event
// persistence without touching settlement.
type Recorder struct{}

func (Recorder) Record(event types.Event) error {
	return SaveEvent(event)
}
