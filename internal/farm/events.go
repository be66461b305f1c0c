/*

Event pipeline for the emission engine. Events are emitted strictly after a
state transition commits and are observational only: a sink that fails is
logged and skipped, never allowed to abort or roll back the operation that
produced the event.

*/

package farm

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solstice-fi/emissary/internal/logger"
	"github.com/solstice-fi/emissary/internal/types"
)

// EventSink receives committed engine events. Implementations must tolerate
// concurrent calls only if they are shared outside the controller; the
// controller itself dispatches sequentially.
type EventSink interface {
	Record(event types.Event) error
}

var eventLogger = logger.GetForComponent("farm_events")

// emit stamps and fans out events to every configured sink. Sink errors are
// logged and swallowed; by the time emit runs the state transition is already
// committed.
func (c *Controller) emit(events ...types.Event) {
	for _, event := range events {
		event.EventID = uuid.New().String()
		event.Timestamp = time.Unix(c.now(), 0).UTC()

		for _, sink := range c.sinks {
			if err := sink.Record(event); err != nil {
				eventLogger.Error().
					Err(err).
					Str("event_id", event.EventID).
					Str("kind", string(event.Kind)).
					Msg("Event sink failed; event dropped for this sink")
			}
		}
	}
}

// LogSink writes every event as a structured log line.
type LogSink struct{}

func (LogSink) Record(event types.Event) error {
	entry := eventLogger.Info().
		Str("event_id", event.EventID).
		Str("kind", string(event.Kind)).
		Time("timestamp", event.Timestamp)

	if event.PoolID != 0 {
		entry = entry.Uint64("pool_id", uint64(event.PoolID))
	}
	if event.Account != "" {
		entry = entry.Str("account", event.Account)
	}
	if event.Denom != "" {
		entry = entry.Str("denom", event.Denom)
	}
	if !event.Amount.IsNil() {
		entry = entry.Str("amount", event.Amount.String())
	}

	entry.Msg("Engine event")
	return nil
}

// Collector retains events in memory. Used by tests and by the web layer's
// recent-activity view when no audit store is configured.
type Collector struct {
	mu     sync.RWMutex
	events []types.Event
	limit  int
}

// NewCollector creates a collector retaining at most limit events; zero or
// negative means unbounded.
func NewCollector(limit int) *Collector {
	return &Collector{limit: limit}
}

func (c *Collector) Record(event types.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)
	if c.limit > 0 && len(c.events) > c.limit {
		c.events = c.events[len(c.events)-c.limit:]
	}
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (c *Collector) Events() []types.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Event, len(c.events))
	copy(out, c.events)
	return out
}
