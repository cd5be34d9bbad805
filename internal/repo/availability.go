package repo

import (
	"context"
	"database/sql"

	"rpscheduler/internal/domain"
)

// RecurringAvailability returns the weekly pattern of one agent by weekday.
func (r Repo) RecurringAvailability(ctx context.Context, agentID int64) ([]domain.RecurringAvailability, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT agent_id,weekday,available FROM recurring_availability WHERE agent_id=? ORDER BY weekday`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RecurringAvailability
	for rows.Next() {
		var a domain.RecurringAvailability
		if err := rows.Scan(&a.AgentID, &a.Weekday, &a.Available); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// DateAvailability returns the date overrides of one agent by date.
func (r Repo) DateAvailability(ctx context.Context, agentID int64) ([]domain.DateAvailability, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT agent_id,date,available FROM date_availability WHERE agent_id=? ORDER BY date`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DateAvailability
	for rows.Next() {
		var a domain.DateAvailability
		if err := rows.Scan(&a.AgentID, &a.Date, &a.Available); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) SetRecurringTx(ctx context.Context, tx *sql.Tx, agentID int64, weekday int, available bool) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO recurring_availability(agent_id,weekday,available) VALUES (?,?,?)
ON CONFLICT(agent_id,weekday) DO UPDATE SET available=excluded.available`, agentID, weekday, boolInt(available))
	return err
}

func (r Repo) ClearRecurringTx(ctx context.Context, tx *sql.Tx, agentID int64, weekday int) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM recurring_availability WHERE agent_id=? AND weekday=?`, agentID, weekday)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) SetDateTx(ctx context.Context, tx *sql.Tx, agentID int64, date string, available bool) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO date_availability(agent_id,date,available) VALUES (?,?,?)
ON CONFLICT(agent_id,date) DO UPDATE SET available=excluded.available`, agentID, date, boolInt(available))
	return err
}

func (r Repo) ClearDateTx(ctx context.Context, tx *sql.Tx, agentID int64, date string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM date_availability WHERE agent_id=? AND date=?`, agentID, date)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ReplaceAvailabilityTx drops every weekly and date row of the agent and
// stores the given ones.
func (r Repo) ReplaceAvailabilityTx(ctx context.Context, tx *sql.Tx, agentID int64, weekly []domain.RecurringAvailability, dates []domain.DateAvailability) error {
	q := r.q(tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM recurring_availability WHERE agent_id=?`, agentID); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM date_availability WHERE agent_id=?`, agentID); err != nil {
		return err
	}
	for _, w := range weekly {
		if err := r.SetRecurringTx(ctx, tx, agentID, w.Weekday, w.Available); err != nil {
			return err
		}
	}
	for _, d := range dates {
		if err := r.SetDateTx(ctx, tx, agentID, d.Date, d.Available); err != nil {
			return err
		}
	}
	return nil
}
