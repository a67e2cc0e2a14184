package inventory

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Supported backend dialects.
const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// Store owns the inventory schema: address/service objects, security rules,
// the four association tables, the topology cache and the workflow tables.
type Store struct {
	db      *gorm.DB
	dialect string
}

// Open connects to the inventory database. The sqlite backend uses the
// cgo-free modernc driver; dsn is a file path (or ":memory:"). The mysql
// backend takes a standard go-sql-driver DSN.
func Open(dialect, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	case DialectMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown inventory dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s inventory: %w", dialect, err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the underlying gorm handle for callers that need raw access.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Dialect() string { return s.dialect }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a transaction-scoped Store. A non-nil error
// from fn rolls back every write made inside it.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, dialect: s.dialect})
	})
}
