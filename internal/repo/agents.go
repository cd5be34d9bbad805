package repo

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"rpscheduler/internal/domain"
)

type AgentFilters struct {
	// Search matches first name, last name or email, case-insensitively.
	Search string
	Active *bool
	Limit  int
}

const agentColumns = `id,first_name,last_name,COALESCE(email,''),COALESCE(phone_number,''),active,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (domain.Agent, error) {
	var a domain.Agent
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// InsertAgentTx stores a and returns the assigned id.
func (r Repo) InsertAgentTx(ctx context.Context, tx *sql.Tx, a domain.Agent) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO agents(first_name,last_name,email,phone_number,active,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		a.FirstName, a.LastName, nullable(a.Email), nullable(a.PhoneNumber), boolInt(a.Active), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateAgentTx(ctx context.Context, tx *sql.Tx, a domain.Agent) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE agents SET first_name=?,last_name=?,email=?,phone_number=?,active=?,updated_at=? WHERE id=?`,
		a.FirstName, a.LastName, nullable(a.Email), nullable(a.PhoneNumber), boolInt(a.Active), a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) DeleteAgentTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM agents WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) GetAgent(ctx context.Context, id int64) (domain.Agent, error) {
	return r.GetAgentTx(ctx, nil, id)
}

func (r Repo) GetAgentTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Agent, error) {
	return scanAgent(r.q(tx).QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=?`, id))
}

func (r Repo) ListAgents(ctx context.Context, f AgentFilters) ([]domain.Agent, error) {
	var clauses []string
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		clauses = append(clauses, "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(COALESCE(email,'')) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if f.Active != nil {
		clauses = append(clauses, "active=?")
		args = append(args, boolInt(*f.Active))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + agentColumns + ` FROM agents ` + where + ` ORDER BY id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ActiveAgents returns the roster taking part in generation, ordered by id.
func (r Repo) ActiveAgents(ctx context.Context) ([]domain.Agent, error) {
	active := true
	return r.ListAgents(ctx, AgentFilters{Active: &active})
}

// MissingAgentsTx returns the ids in ids that have no agent row, ascending.
func (r Repo) MissingAgentsTx(ctx context.Context, tx *sql.Tx, ids []int64) ([]int64, error) {
	var missing []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		var one int
		err := r.q(tx).QueryRowContext(ctx, `SELECT 1 FROM agents WHERE id=?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}
