package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"rpscheduler/internal/config"
	"rpscheduler/internal/db"
	"rpscheduler/internal/engine"
	"rpscheduler/internal/migrate"
)

// Options selects the workspace to open.
type Options struct {
	Workspace string
	// ConfigPath overrides the workspace rps.yml when set.
	ConfigPath string
	Logger     *slog.Logger
}

// App is an opened workspace: a migrated database, its config and an engine
// bound to both.
type App struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Engine    engine.Engine
}

// Open opens the workspace database, applies pending migrations and loads the
// config. A missing rps.yml falls back to defaults.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg)
	e.Logger = opts.Logger
	return &App{
		Workspace: opts.Workspace,
		DB:        conn,
		Config:    cfg,
		Engine:    e,
	}, nil
}

func loadConfig(opts Options) (*config.Config, error) {
	if opts.ConfigPath != "" {
		cfg, err := config.FromFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", opts.ConfigPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
