// MeterDB stores deduplicated tariff readings.
// Every row is keyed by the reading fingerprint and is written once,
// on the first observation of that exact counter value.
// This database should only be written to by meter_collector
// and meterctl import, but can be read by any service.
package meterdb

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/NotCoffee418/dbmigrator"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type DB struct {
	conn *sql.DB
}

// Open creates the database if needed and applies migrations.
func Open(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers, which keeps INSERT OR IGNORE
	// free of SQLITE_BUSY and makes in-memory databases usable.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		conn,
		migrationFS,
		"migrations",
	)

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
