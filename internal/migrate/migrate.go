// Package migrate applies the embedded SQL files in name order, once each.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/example/cafebook/internal/db"
)

//go:embed *.sql
var files embed.FS

// Versions lists the embedded migrations in the order they apply.
func Versions() ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Up applies pending migrations, each in its own transaction together with
// its schema_migrations row.
func Up(ctx context.Context, d *db.DB) error {
	versions, err := Versions()
	if err != nil {
		return err
	}
	if err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now());`); err != nil {
		return fmt.Errorf("schema_migrations: %w", err)
	}

	for _, v := range versions {
		var applied bool
		if err := d.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, v).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}
		sql, err := files.ReadFile(v)
		if err != nil {
			return err
		}
		err = d.WithTx(ctx, func(tx db.Tx) error {
			if err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			return tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, v)
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", v, err)
		}
	}
	return nil
}
