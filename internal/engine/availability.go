package engine

import (
	"context"
	"database/sql"
	"strconv"

	"rpscheduler/internal/domain"
	"rpscheduler/internal/events"
	"rpscheduler/internal/pairing"
)

type AvailabilityReplaceOptions struct {
	AgentID int64
	Weekly  []domain.RecurringAvailability
	Dates   []domain.DateAvailability
	ActorID string
}

func validWeekday(weekday int) error {
	if weekday < 0 || weekday >= pairing.DaysPerWeek {
		return invalidf("weekday %d out of range 0..6", weekday)
	}
	return nil
}

// normalizeDate parses a YYYY-MM-DD date and returns it in canonical form.
func normalizeDate(date string) (string, error) {
	t, err := pairing.ParseDate(date)
	if err != nil {
		return "", invalidf("date %q must be YYYY-MM-DD", date)
	}
	return t.Format(pairing.DateLayout), nil
}

func (e Engine) GetAvailability(ctx context.Context, agentID int64) (domain.AgentAvailability, error) {
	if _, err := e.Repo.GetAgent(ctx, agentID); err != nil {
		return domain.AgentAvailability{}, err
	}
	weekly, err := e.Repo.RecurringAvailability(ctx, agentID)
	if err != nil {
		return domain.AgentAvailability{}, err
	}
	dates, err := e.Repo.DateAvailability(ctx, agentID)
	if err != nil {
		return domain.AgentAvailability{}, err
	}
	out := domain.AgentAvailability{AgentID: agentID, Weekly: weekly, Dates: dates}
	if out.Weekly == nil {
		out.Weekly = []domain.RecurringAvailability{}
	}
	if out.Dates == nil {
		out.Dates = []domain.DateAvailability{}
	}
	return out, nil
}

// ReplaceAvailability swaps the whole weekly pattern and every date override
// of one agent.
func (e Engine) ReplaceAvailability(ctx context.Context, opts AvailabilityReplaceOptions) (domain.AgentAvailability, error) {
	seenDays := map[int]bool{}
	weekly := make([]domain.RecurringAvailability, 0, len(opts.Weekly))
	for _, w := range opts.Weekly {
		if err := validWeekday(w.Weekday); err != nil {
			return domain.AgentAvailability{}, err
		}
		if seenDays[w.Weekday] {
			return domain.AgentAvailability{}, invalidf("weekday %d listed twice", w.Weekday)
		}
		seenDays[w.Weekday] = true
		weekly = append(weekly, domain.RecurringAvailability{AgentID: opts.AgentID, Weekday: w.Weekday, Available: w.Available})
	}
	seenDates := map[string]bool{}
	dates := make([]domain.DateAvailability, 0, len(opts.Dates))
	for _, d := range opts.Dates {
		date, err := normalizeDate(d.Date)
		if err != nil {
			return domain.AgentAvailability{}, err
		}
		if seenDates[date] {
			return domain.AgentAvailability{}, invalidf("date %s listed twice", date)
		}
		seenDates[date] = true
		dates = append(dates, domain.DateAvailability{AgentID: opts.AgentID, Date: date, Available: d.Available})
	}

	err := e.withAgentTx(ctx, opts.AgentID, func(tx *sql.Tx) error {
		if err := e.Repo.ReplaceAvailabilityTx(ctx, tx, opts.AgentID, weekly, dates); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AvailabilityUpdate, "agent", strconv.FormatInt(opts.AgentID, 10), opts.ActorID, events.EventPayload{
			"weekly": len(weekly),
			"dates":  len(dates),
		})
	})
	if err != nil {
		return domain.AgentAvailability{}, err
	}
	return e.GetAvailability(ctx, opts.AgentID)
}

func (e Engine) SetWeekday(ctx context.Context, agentID int64, weekday int, available bool, actorID string) error {
	if err := validWeekday(weekday); err != nil {
		return err
	}
	return e.withAgentTx(ctx, agentID, func(tx *sql.Tx) error {
		if err := e.Repo.SetRecurringTx(ctx, tx, agentID, weekday, available); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AvailabilitySet, "agent", strconv.FormatInt(agentID, 10), actorID, events.EventPayload{
			"weekday":   weekday,
			"available": available,
		})
	})
}

func (e Engine) ClearWeekday(ctx context.Context, agentID int64, weekday int, actorID string) error {
	if err := validWeekday(weekday); err != nil {
		return err
	}
	return e.withAgentTx(ctx, agentID, func(tx *sql.Tx) error {
		if err := e.Repo.ClearRecurringTx(ctx, tx, agentID, weekday); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AvailabilityClear, "agent", strconv.FormatInt(agentID, 10), actorID, events.EventPayload{"weekday": weekday})
	})
}

func (e Engine) SetDate(ctx context.Context, agentID int64, date string, available bool, actorID string) error {
	date, err := normalizeDate(date)
	if err != nil {
		return err
	}
	return e.withAgentTx(ctx, agentID, func(tx *sql.Tx) error {
		if err := e.Repo.SetDateTx(ctx, tx, agentID, date, available); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AvailabilitySet, "agent", strconv.FormatInt(agentID, 10), actorID, events.EventPayload{
			"date":      date,
			"available": available,
		})
	})
}

func (e Engine) ClearDate(ctx context.Context, agentID int64, date string, actorID string) error {
	date, err := normalizeDate(date)
	if err != nil {
		return err
	}
	return e.withAgentTx(ctx, agentID, func(tx *sql.Tx) error {
		if err := e.Repo.ClearDateTx(ctx, tx, agentID, date); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AvailabilityClear, "agent", strconv.FormatInt(agentID, 10), actorID, events.EventPayload{"date": date})
	})
}

// withAgentTx runs fn in a transaction after checking the agent exists.
func (e Engine) withAgentTx(ctx context.Context, agentID int64, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetAgentTx(ctx, tx, agentID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
