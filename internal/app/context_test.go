package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpscheduler/internal/config"
	"rpscheduler/internal/db"
	"rpscheduler/internal/repo"
)

func TestOpenDefaultsAndMigrates(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(context.Background(), Options{Workspace: dir})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, config.DefaultCooldownMonths, a.Config.Scheduling.CooldownMonths)
	assert.FileExists(t, db.Path(dir))

	agents, err := a.Engine.ListAgents(context.Background(), repo.AgentFilters{})
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestOpenReadsWorkspaceConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("scheduling:\n  cooldown_months: 2\n"), 0o644))
	a, err := Open(context.Background(), Options{Workspace: dir})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, 2, a.Config.Scheduling.CooldownMonths)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("scheduling:\n  cooldown_months: -4\n"), 0o644))
	_, err := Open(context.Background(), Options{Workspace: dir, ConfigPath: path})
	assert.Error(t, err)
}
