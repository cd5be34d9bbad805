package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rpscheduler/internal/domain"
)

func (r Repo) GetScheduleByDate(ctx context.Context, date string) (domain.Schedule, error) {
	return r.GetScheduleByDateTx(ctx, nil, date)
}

func (r Repo) GetScheduleByDateTx(ctx context.Context, tx *sql.Tx, date string) (domain.Schedule, error) {
	q := r.q(tx)
	var s domain.Schedule
	err := q.QueryRowContext(ctx, `SELECT id,date,created_at FROM schedules WHERE date=?`, date).Scan(&s.ID, &s.Date, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	rows, err := q.QueryContext(ctx, `SELECT id,agent1_id,agent2_id FROM schedule_entries WHERE schedule_id=? ORDER BY id`, s.ID)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	s.Entries = []domain.ScheduleEntry{}
	for rows.Next() {
		var e domain.ScheduleEntry
		var agent2 sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Agent1ID, &agent2); err != nil {
			return s, err
		}
		if agent2.Valid {
			v := agent2.Int64
			e.Agent2ID = &v
		}
		s.Entries = append(s.Entries, e)
	}
	return s, rows.Err()
}

// ListSchedules returns schedule headers (no entries), newest date first.
func (r Repo) ListSchedules(ctx context.Context, limit int) ([]domain.Schedule, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,date,created_at FROM schedules ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Schedule
	for rows.Next() {
		var s domain.Schedule
		if err := rows.Scan(&s.ID, &s.Date, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ReplaceSchedule deletes any schedule stored for s.Date and inserts s with
// its entries. Callers own tx; nothing is visible until it commits.
func (r Repo) ReplaceSchedule(ctx context.Context, tx *sql.Tx, s domain.Schedule) error {
	if tx == nil {
		return fmt.Errorf("replace schedule requires a transaction")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE date=?`, s.Date); err != nil {
		return fmt.Errorf("delete schedule %s: %w", s.Date, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schedules(id,date,created_at) VALUES (?,?,?)`, s.ID, s.Date, s.CreatedAt); err != nil {
		return fmt.Errorf("insert schedule %s: %w", s.Date, err)
	}
	for _, e := range s.Entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO schedule_entries(schedule_id,agent1_id,agent2_id) VALUES (?,?,?)`,
			s.ID, e.Agent1ID, nullableInt64Ptr(e.Agent2ID)); err != nil {
			return fmt.Errorf("insert schedule entry: %w", err)
		}
	}
	return nil
}

func (r Repo) DeleteScheduleTx(ctx context.Context, tx *sql.Tx, date string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM schedules WHERE date=?`, date)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// PairingHistory returns paired entries of schedules dated within [from, to],
// skipping the schedule dated excludeDate. Pairs come back in canonical order.
func (r Repo) PairingHistory(ctx context.Context, from, to, excludeDate string) ([]domain.PairingRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT e.agent1_id,e.agent2_id,s.date
FROM schedule_entries e JOIN schedules s ON s.id=e.schedule_id
WHERE e.agent2_id IS NOT NULL AND s.date>=? AND s.date<=? AND s.date<>?
ORDER BY s.date, e.id`, from, to, excludeDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PairingRecord
	for rows.Next() {
		var p domain.PairingRecord
		if err := rows.Scan(&p.AgentA, &p.AgentB, &p.Date); err != nil {
			return nil, err
		}
		p.AgentA, p.AgentB = canonical(p.AgentA, p.AgentB)
		res = append(res, p)
	}
	return res, rows.Err()
}
