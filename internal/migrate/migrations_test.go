package migrate

import (
	"context"
	"testing"

	"rpscheduler/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()

	if v, _ := Version(ctx, conn); v != 0 {
		t.Fatalf("fresh version = %d", v)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	all, err := Available()
	if err != nil {
		t.Fatal(err)
	}
	v, err := Version(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}
	if v != all[len(all)-1].Version {
		t.Fatalf("version = %d, want %d", v, all[len(all)-1].Version)
	}
}

func TestBlacklistCheckRejectsNonCanonical(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := conn.Exec(`INSERT INTO agents(first_name,last_name,active,created_at,updated_at) VALUES (?,?,1,'t','t')`, name, name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := conn.Exec(`INSERT INTO blacklist(agent_a,agent_b,created_at) VALUES (2,1,'t')`); err == nil {
		t.Fatalf("expected check constraint failure")
	}
}
