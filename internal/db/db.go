package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// Open connects to the database selected by the DSN: postgres URLs or
// keyword DSNs go to PostgreSQL, everything else is treated as a SQLite path.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	if isPostgresDSN(dsn) {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("db: open postgres: %w", err)
		}
		return conn, nil
	}
	conn, err := gorm.Open(sqlite.Open(sqliteDSN(dsn)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}
	if isMemoryDSN(dsn) {
		// Each pooled connection to an in-memory database sees its own empty
		// database, so the pool must stay at a single connection.
		if sqlDB, errDB := conn.DB(); errDB == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return conn, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory") || dsn == ":memory:"
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// sqliteDSN appends pragmas for sane concurrent access on file databases.
func sqliteDSN(dsn string) string {
	if isMemoryDSN(dsn) {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}
