package server

import (
	"encoding/json"

	"rpscheduler/internal/domain"
	"rpscheduler/internal/engine"
	"rpscheduler/internal/pairing"
)

// Request payloads

type CreateAgentRequest struct {
	FirstName   string `json:"first_name" minLength:"1"`
	LastName    string `json:"last_name" minLength:"1"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

type UpdateAgentRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type WeekdayAvailability struct {
	Weekday   int  `json:"weekday" minimum:"0" maximum:"6" doc:"0 is Monday"`
	Available bool `json:"available"`
}

type DateAvailabilityRequest struct {
	Date      string `json:"date" doc:"YYYY-MM-DD"`
	Available bool   `json:"available"`
}

type ReplaceAvailabilityRequest struct {
	Weekly []WeekdayAvailability     `json:"weekly"`
	Dates  []DateAvailabilityRequest `json:"dates"`
}

type SetAvailabilityRequest struct {
	Available bool `json:"available"`
}

type BlacklistRequest struct {
	AgentA int64 `json:"agent_a"`
	AgentB int64 `json:"agent_b"`
}

type PairRequest struct {
	Agent1ID int64 `json:"agent1_id"`
	Agent2ID int64 `json:"agent2_id"`
}

type SetScheduleRequest struct {
	Pairs    []PairRequest `json:"pairs"`
	Unpaired []int64       `json:"unpaired"`
}

// Responses

type AgentResponse domain.Agent

type AvailabilityResponse struct {
	AgentID int64                     `json:"agent_id"`
	Weekly  []WeekdayAvailability     `json:"weekly"`
	Dates   []DateAvailabilityRequest `json:"dates"`
}

type BlacklistResponse struct {
	AgentA    int64  `json:"agent_a"`
	AgentB    int64  `json:"agent_b"`
	CreatedAt string `json:"created_at,omitempty"`
	Created   bool   `json:"created"`
}

type ScheduleResponse struct {
	ID        string         `json:"id"`
	Date      string         `json:"date" format:"date"`
	CreatedAt string         `json:"created_at" format:"date-time"`
	Pairs     []pairing.Pair `json:"pairs"`
	Unpaired  []int64        `json:"unpaired"`
	Generated bool           `json:"generated"`
	Bye       *int64         `json:"bye,omitempty"`
	// EligibleEdges is only set on a generation response.
	EligibleEdges *int `json:"eligible_edges,omitempty"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func agentResponse(a domain.Agent) AgentResponse {
	return AgentResponse(a)
}

func mapAgents(items []domain.Agent) []AgentResponse {
	out := make([]AgentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, agentResponse(a))
	}
	return out
}

func availabilityResponse(av domain.AgentAvailability) AvailabilityResponse {
	out := AvailabilityResponse{
		AgentID: av.AgentID,
		Weekly:  make([]WeekdayAvailability, 0, len(av.Weekly)),
		Dates:   make([]DateAvailabilityRequest, 0, len(av.Dates)),
	}
	for _, w := range av.Weekly {
		out.Weekly = append(out.Weekly, WeekdayAvailability{Weekday: w.Weekday, Available: w.Available})
	}
	for _, d := range av.Dates {
		out.Dates = append(out.Dates, DateAvailabilityRequest{Date: d.Date, Available: d.Available})
	}
	return out
}

func blacklistResponse(e domain.BlacklistEntry, created bool) BlacklistResponse {
	return BlacklistResponse{AgentA: e.AgentA, AgentB: e.AgentB, CreatedAt: e.CreatedAt, Created: created}
}

func scheduleResponse(s domain.Schedule, generated bool) ScheduleResponse {
	out := ScheduleResponse{
		ID:        s.ID,
		Date:      s.Date,
		CreatedAt: s.CreatedAt,
		Pairs:     []pairing.Pair{},
		Unpaired:  []int64{},
		Generated: generated,
	}
	for _, e := range s.Entries {
		if e.Paired() {
			out.Pairs = append(out.Pairs, pairing.NewPair(e.Agent1ID, *e.Agent2ID))
		} else {
			out.Unpaired = append(out.Unpaired, e.Agent1ID)
		}
	}
	return out
}

func generationResponse(g engine.Generation) ScheduleResponse {
	out := scheduleResponse(g.Schedule, true)
	out.Bye = g.Result.Bye
	edges := g.Result.EligibleEdges
	out.EligibleEdges = &edges
	return out
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{"raw": raw}
	}
	return out
}
