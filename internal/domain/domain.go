package domain

type Agent struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// RecurringAvailability is the weekly pattern; Weekday 0 is Monday.
type RecurringAvailability struct {
	AgentID   int64 `json:"agent_id"`
	Weekday   int   `json:"weekday" minimum:"0" maximum:"6"`
	Available bool  `json:"available"`
}

// DateAvailability overrides the weekly pattern for one date.
type DateAvailability struct {
	AgentID   int64  `json:"agent_id"`
	Date      string `json:"date" format:"date"`
	Available bool   `json:"available"`
}

// AgentAvailability bundles the weekly pattern and date overrides for one agent.
type AgentAvailability struct {
	AgentID int64                   `json:"agent_id"`
	Weekly  []RecurringAvailability `json:"weekly"`
	Dates   []DateAvailability      `json:"dates"`
}

// BlacklistEntry is stored with AgentA < AgentB.
type BlacklistEntry struct {
	AgentA    int64  `json:"agent_a"`
	AgentB    int64  `json:"agent_b"`
	CreatedAt string `json:"created_at,omitempty" format:"date-time"`
}

// PairingRecord is one paired schedule entry seen as history.
type PairingRecord struct {
	AgentA int64  `json:"agent_a"`
	AgentB int64  `json:"agent_b"`
	Date   string `json:"date" format:"date"`
}

type Schedule struct {
	ID        string          `json:"id"`
	Date      string          `json:"date" format:"date"`
	Entries   []ScheduleEntry `json:"entries"`
	CreatedAt string          `json:"created_at" format:"date-time"`
}

// ScheduleEntry is a pair, or a single unpaired agent when Agent2ID is nil.
type ScheduleEntry struct {
	ID       int64  `json:"id,omitempty"`
	Agent1ID int64  `json:"agent1_id"`
	Agent2ID *int64 `json:"agent2_id,omitempty"`
}

// Paired reports whether the entry holds two agents.
func (e ScheduleEntry) Paired() bool { return e.Agent2ID != nil }

// Pairs returns the paired entries of s.
func (s Schedule) Pairs() []ScheduleEntry {
	var out []ScheduleEntry
	for _, e := range s.Entries {
		if e.Paired() {
			out = append(out, e)
		}
	}
	return out
}

// Unpaired returns the agent ids without a partner.
func (s Schedule) Unpaired() []int64 {
	var out []int64
	for _, e := range s.Entries {
		if !e.Paired() {
			out = append(out, e.Agent1ID)
		}
	}
	return out
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
