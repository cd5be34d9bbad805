package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types appended by the engine.
const (
	AgentCreate        = "agent.create"
	AgentUpdate        = "agent.update"
	AgentDelete        = "agent.delete"
	AvailabilitySet    = "availability.set"
	AvailabilityClear  = "availability.clear"
	AvailabilityUpdate = "availability.replace"
	BlacklistAdd       = "blacklist.add"
	BlacklistRemove    = "blacklist.remove"
	ScheduleGenerate   = "schedule.generate"
	ScheduleSet        = "schedule.set"
)

// Types lists every event type the engine emits.
var Types = []string{
	AgentCreate, AgentUpdate, AgentDelete,
	AvailabilitySet, AvailabilityClear, AvailabilityUpdate,
	BlacklistAdd, BlacklistRemove,
	ScheduleGenerate, ScheduleSet,
}

type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes one event row inside tx so it commits with the mutation.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if actorID == "" {
		actorID = "system"
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
