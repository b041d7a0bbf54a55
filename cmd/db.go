package cmd

import (
	"context"
	"fmt"

	"github.com/example/cafebook/internal/config"
	"github.com/example/cafebook/internal/db"
	"github.com/example/cafebook/internal/migrate"
)

// openDB connects, pings and optionally migrates the journal database.
func openDB(ctx context.Context, cfg config.Config, migrateUp bool) (*db.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return d, nil
}
