package engine

import (
	"context"
	"fmt"

	"rpscheduler/internal/domain"
	"rpscheduler/internal/events"
	"rpscheduler/internal/pairing"
	"rpscheduler/internal/repo"
)

// AddBlacklist forbids pairing a and b. Adding an existing pair is a no-op
// that reports created=false.
func (e Engine) AddBlacklist(ctx context.Context, a, b int64, actorID string) (domain.BlacklistEntry, bool, error) {
	if a == b {
		return domain.BlacklistEntry{}, false, invalidf("an agent cannot be blacklisted against itself")
	}
	p := pairing.NewPair(a, b)
	entry := domain.BlacklistEntry{AgentA: p.A, AgentB: p.B, CreatedAt: e.timestamp()}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.BlacklistEntry{}, false, err
	}
	defer tx.Rollback()
	missing, err := e.Repo.MissingAgentsTx(ctx, tx, []int64{p.A, p.B})
	if err != nil {
		return domain.BlacklistEntry{}, false, err
	}
	if len(missing) > 0 {
		return domain.BlacklistEntry{}, false, fmt.Errorf("agent %d: %w", missing[0], repo.ErrNotFound)
	}
	created, err := e.Repo.AddBlacklistTx(ctx, tx, p.A, p.B, entry.CreatedAt)
	if err != nil {
		return domain.BlacklistEntry{}, false, err
	}
	if !created {
		return entry, false, nil
	}
	if err := e.Events.Append(ctx, tx, events.BlacklistAdd, "blacklist", pairKey(p), actorID, events.EventPayload{
		"agent_a": p.A,
		"agent_b": p.B,
	}); err != nil {
		return domain.BlacklistEntry{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.BlacklistEntry{}, false, err
	}
	return entry, true, nil
}

func (e Engine) RemoveBlacklist(ctx context.Context, a, b int64, actorID string) error {
	p := pairing.NewPair(a, b)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.RemoveBlacklistTx(ctx, tx, p.A, p.B); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.BlacklistRemove, "blacklist", pairKey(p), actorID, events.EventPayload{
		"agent_a": p.A,
		"agent_b": p.B,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListBlacklist returns every entry, or only those naming agentID when it is
// non-zero.
func (e Engine) ListBlacklist(ctx context.Context, agentID int64) ([]domain.BlacklistEntry, error) {
	if agentID == 0 {
		return e.Repo.BlacklistPairs(ctx)
	}
	if _, err := e.Repo.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return e.Repo.BlacklistForAgent(ctx, agentID)
}

func pairKey(p pairing.Pair) string {
	return fmt.Sprintf("%d-%d", p.A, p.B)
}
