// Package migrations embeds the SQL schema applied at startup and by
// integration tests.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

// Execer is satisfied by *sql.DB and *pgxpool.Pool adapters.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// Apply runs every embedded migration in file name order. Statements are
// idempotent so Apply may run on every boot.
func Apply(ctx context.Context, db Execer) error {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := db.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
