package repo

import (
	"context"
	"database/sql"
	"errors"

	"rpscheduler/internal/domain"
)

func canonical(a, b int64) (int64, int64) {
	if b < a {
		return b, a
	}
	return a, b
}

// BlacklistPairs returns every entry in canonical order.
func (r Repo) BlacklistPairs(ctx context.Context) ([]domain.BlacklistEntry, error) {
	return r.queryBlacklist(ctx, `SELECT agent_a,agent_b,created_at FROM blacklist ORDER BY agent_a,agent_b`)
}

// BlacklistForAgent returns the entries naming agentID on either side.
func (r Repo) BlacklistForAgent(ctx context.Context, agentID int64) ([]domain.BlacklistEntry, error) {
	return r.queryBlacklist(ctx, `SELECT agent_a,agent_b,created_at FROM blacklist WHERE agent_a=? OR agent_b=? ORDER BY agent_a,agent_b`, agentID, agentID)
}

func (r Repo) queryBlacklist(ctx context.Context, query string, args ...any) ([]domain.BlacklistEntry, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.BlacklistEntry
	for rows.Next() {
		var e domain.BlacklistEntry
		if err := rows.Scan(&e.AgentA, &e.AgentB, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// AddBlacklistTx stores the pair in canonical order. It reports false when the
// pair was already present.
func (r Repo) AddBlacklistTx(ctx context.Context, tx *sql.Tx, a, b int64, createdAt string) (bool, error) {
	a, b = canonical(a, b)
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO blacklist(agent_a,agent_b,created_at) VALUES (?,?,?) ON CONFLICT(agent_a,agent_b) DO NOTHING`, a, b, createdAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) RemoveBlacklistTx(ctx context.Context, tx *sql.Tx, a, b int64) error {
	a, b = canonical(a, b)
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM blacklist WHERE agent_a=? AND agent_b=?`, a, b)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) IsBlacklistedTx(ctx context.Context, tx *sql.Tx, a, b int64) (bool, error) {
	a, b = canonical(a, b)
	var one int
	err := r.q(tx).QueryRowContext(ctx, `SELECT 1 FROM blacklist WHERE agent_a=? AND agent_b=?`, a, b).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
