package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"rpscheduler/internal/db"
	"rpscheduler/internal/domain"
	"rpscheduler/internal/migrate"
)

const ts = "2024-03-01T00:00:00Z"

func newTestRepo(t *testing.T) (Repo, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Repo{DB: conn}, conn
}

func insertAgent(t *testing.T, r Repo, first, last, email string, active bool) int64 {
	t.Helper()
	id, err := r.InsertAgentTx(context.Background(), nil, domain.Agent{
		FirstName: first, LastName: last, Email: email, Active: active, CreatedAt: ts, UpdatedAt: ts,
	})
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	return id
}

func storeSchedule(t *testing.T, r Repo, conn *sql.DB, id, date string, entries ...domain.ScheduleEntry) {
	t.Helper()
	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := r.ReplaceSchedule(ctx, tx, domain.Schedule{ID: id, Date: date, CreatedAt: ts, Entries: entries}); err != nil {
		t.Fatalf("replace schedule: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func pair(a, b int64) domain.ScheduleEntry { return domain.ScheduleEntry{Agent1ID: a, Agent2ID: &b} }

func TestListAgentsFilters(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	ada := insertAgent(t, r, "Ada", "Lovelace", "ada@example.com", true)
	insertAgent(t, r, "Alan", "Turing", "", false)
	insertAgent(t, r, "Grace", "Hopper", "grace@EXAMPLE.com", true)

	got, err := r.ListAgents(ctx, AgentFilters{Search: "LOVE"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != ada {
		t.Fatalf("unexpected search result %+v", got)
	}
	got, _ = r.ListAgents(ctx, AgentFilters{Search: "example.com"})
	if len(got) != 2 {
		t.Fatalf("expected email search to match 2, got %d", len(got))
	}
	inactive := false
	got, _ = r.ListAgents(ctx, AgentFilters{Active: &inactive})
	if len(got) != 1 || got[0].FirstName != "Alan" {
		t.Fatalf("unexpected inactive filter %+v", got)
	}
	active, err := r.ActiveAgents(ctx)
	if err != nil || len(active) != 2 {
		t.Fatalf("active agents: %v %d", err, len(active))
	}
	if got[0].Email != "" {
		t.Fatalf("null email should scan as empty")
	}

	missing, err := r.MissingAgentsTx(ctx, nil, []int64{ada, 99, 98})
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if len(missing) != 2 || missing[0] != 98 || missing[1] != 99 {
		t.Fatalf("unexpected missing %v", missing)
	}
	if _, err := r.GetAgent(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBlacklistCanonicalOrder(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	a := insertAgent(t, r, "A", "A", "", true)
	b := insertAgent(t, r, "B", "B", "", true)

	created, err := r.AddBlacklistTx(ctx, nil, b, a, ts)
	if err != nil || !created {
		t.Fatalf("add: created=%v err=%v", created, err)
	}
	created, err = r.AddBlacklistTx(ctx, nil, a, b, ts)
	if err != nil || created {
		t.Fatalf("second add: created=%v err=%v", created, err)
	}
	pairs, _ := r.BlacklistPairs(ctx)
	if len(pairs) != 1 || pairs[0].AgentA != a || pairs[0].AgentB != b {
		t.Fatalf("unexpected pairs %+v", pairs)
	}
	if ok, _ := r.IsBlacklistedTx(ctx, nil, b, a); !ok {
		t.Fatalf("expected reversed lookup to match")
	}
	if err := r.RemoveBlacklistTx(ctx, nil, b, a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := r.RemoveBlacklistTx(ctx, nil, a, b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestReplaceScheduleAndHistory(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	ids := make([]int64, 5)
	for i := range ids {
		ids[i] = insertAgent(t, r, "Agent", string(rune('A'+i)), "", true)
	}

	storeSchedule(t, r, conn, "s1", "2024-03-04", pair(ids[1], ids[0]), domain.ScheduleEntry{Agent1ID: ids[4]})
	storeSchedule(t, r, conn, "s2", "2024-03-11", pair(ids[2], ids[3]))
	storeSchedule(t, r, conn, "s3", "2025-06-02", pair(ids[0], ids[2]))

	s, err := r.GetScheduleByDate(ctx, "2024-03-04")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(s.Pairs()) != 1 || len(s.Unpaired()) != 1 || s.Unpaired()[0] != ids[4] {
		t.Fatalf("unexpected entries %+v", s.Entries)
	}

	hist, err := r.PairingHistory(ctx, "2023-07-04", "2024-11-04", "2024-03-11")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].AgentA != ids[0] || hist[0].AgentB != ids[1] || hist[0].Date != "2024-03-04" {
		t.Fatalf("unexpected history %+v", hist)
	}

	storeSchedule(t, r, conn, "s1b", "2024-03-04", pair(ids[0], ids[4]))
	s, _ = r.GetScheduleByDate(ctx, "2024-03-04")
	if s.ID != "s1b" || len(s.Entries) != 1 {
		t.Fatalf("schedule was not replaced: %+v", s)
	}
	var stale int
	conn.QueryRow(`SELECT COUNT(*) FROM schedule_entries WHERE schedule_id='s1'`).Scan(&stale)
	if stale != 0 {
		t.Fatalf("old entries left behind: %d", stale)
	}

	list, _ := r.ListSchedules(ctx, 2)
	if len(list) != 2 || list[0].Date != "2025-06-02" {
		t.Fatalf("unexpected list %+v", list)
	}
	if err := r.ReplaceSchedule(ctx, nil, s); err == nil {
		t.Fatalf("expected error without transaction")
	}
}

func TestDeleteAgentCascades(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	a := insertAgent(t, r, "A", "A", "", true)
	b := insertAgent(t, r, "B", "B", "", true)
	if err := r.SetRecurringTx(ctx, nil, a, 0, true); err != nil {
		t.Fatal(err)
	}
	if err := r.SetDateTx(ctx, nil, a, "2024-03-05", false); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddBlacklistTx(ctx, nil, a, b, ts); err != nil {
		t.Fatal(err)
	}
	storeSchedule(t, r, conn, "s1", "2024-03-04", pair(a, b))

	if err := r.DeleteAgentTx(ctx, nil, a); err != nil {
		t.Fatalf("delete: %v", err)
	}
	weekly, _ := r.RecurringAvailability(ctx, a)
	dates, _ := r.DateAvailability(ctx, a)
	bl, _ := r.BlacklistPairs(ctx)
	if len(weekly) != 0 || len(dates) != 0 || len(bl) != 0 {
		t.Fatalf("expected cascade: weekly=%d dates=%d blacklist=%d", len(weekly), len(dates), len(bl))
	}
	s, err := r.GetScheduleByDate(ctx, "2024-03-04")
	if err != nil {
		t.Fatalf("schedule header should remain: %v", err)
	}
	if len(s.Entries) != 0 {
		t.Fatalf("entries referencing deleted agent should be gone: %+v", s.Entries)
	}
	if err := r.ClearRecurringTx(ctx, nil, a, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
