package inventory

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date using the embedded goose migrations
// for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	var gooseDialect, dir string
	switch s.dialect {
	case DialectSQLite:
		gooseDialect, dir = "sqlite3", "migrations/sqlite"
	case DialectMySQL:
		gooseDialect, dir = "mysql", "migrations/mysql"
	default:
		return fmt.Errorf("no migrations for dialect %q", s.dialect)
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
		return fmt.Errorf("run %s migrations: %w", s.dialect, err)
	}
	return nil
}
