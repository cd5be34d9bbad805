package pairing

import "time"

// DateLayout is the calendar date format used for availability overrides.
const DateLayout = "2006-01-02"

// Resolver answers whether an agent can work on a given day of the target week.
type Resolver interface {
	IsAvailable(agentID int64, weekday int, date time.Time) bool
}

// Availability combines weekly recurring flags with date-specific overrides.
// The zero value is not usable; call NewAvailability.
type Availability struct {
	weekly map[int64]map[int]bool
	dates  map[int64]map[string]bool
}

func NewAvailability() *Availability {
	return &Availability{
		weekly: make(map[int64]map[int]bool),
		dates:  make(map[int64]map[string]bool),
	}
}

// SetWeekly records the recurring flag for weekday (0 = Monday … 6 = Sunday).
func (a *Availability) SetWeekly(agentID int64, weekday int, available bool) {
	days, ok := a.weekly[agentID]
	if !ok {
		days = make(map[int]bool, 7)
		a.weekly[agentID] = days
	}
	days[weekday] = available
}

// SetDate records an override for a single calendar date.
func (a *Availability) SetDate(agentID int64, date time.Time, available bool) {
	days, ok := a.dates[agentID]
	if !ok {
		days = make(map[string]bool)
		a.dates[agentID] = days
	}
	days[date.Format(DateLayout)] = available
}

// IsAvailable reports the date override when present, else the weekly flag,
// else false. Agents with no data on record are never available.
func (a *Availability) IsAvailable(agentID int64, weekday int, date time.Time) bool {
	if days, ok := a.dates[agentID]; ok {
		if flag, ok := days[date.Format(DateLayout)]; ok {
			return flag
		}
	}
	if days, ok := a.weekly[agentID]; ok {
		if flag, ok := days[weekday]; ok {
			return flag
		}
	}
	return false
}

// WeekStart returns the Monday (at UTC midnight) of the week containing t.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ParseDate parses a YYYY-MM-DD calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
