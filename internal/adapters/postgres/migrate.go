package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every "*.up.sql" in order, or every "*.down.sql" in
// reverse order.
func Migrate(ctx context.Context, db *DB, direction string) error {
	suffix := "." + direction + ".sql"
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	files, err := fs.Glob(migrationFS, "migrations/*"+suffix)
	if err != nil {
		return err
	}
	slices.Sort(files)
	if direction == "down" {
		slices.Reverse(files)
	}

	for _, f := range files {
		data, err := migrationFS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		slog.Info("migration applied", "file", strings.TrimPrefix(f, "migrations/"))
	}
	return nil
}
