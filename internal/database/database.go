// Package database provides the event store: upsert-by-dedupe-key,
// filtered cursor pagination, counts, and distinct alert type listing.
//
// Two backends are supported through database/sql: PostgreSQL (lib/pq)
// and an embedded SQLite file store (modernc.org/sqlite), selected by
// the DATABASE_URL prefix. The SQL is written to the common subset of
// both dialects; only the DDL differs.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps a database connection and provides event store operations.
type DB struct {
	conn      *sql.DB
	fileStore bool
}

// NewDB creates a new store connection using the provided DSN.
// A DSN beginning with "file:" or "sqlite:" opens the embedded
// file-based store; anything else is treated as a Postgres DSN.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn cannot be empty")
	}

	fileStore := strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, "sqlite:")

	var conn *sql.DB
	var err error
	if fileStore {
		conn, err = sql.Open("sqlite", strings.TrimPrefix(dsn, "sqlite:"))
	} else {
		conn, err = sql.Open("postgres", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool. The embedded store serializes writes
	// on a single file handle.
	if fileStore {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to event store", "file_store", fileStore)

	return &DB{conn: conn, fileStore: fileStore}, nil
}

// EnsureSchema creates the events table and its indexes if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	rawType := "JSONB"
	timeType := "TIMESTAMPTZ"
	if db.fileStore {
		// SQLite stores the raw payload as serialized text.
		rawType = "TEXT"
		timeType = "TIMESTAMP"
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS events (
			id              TEXT PRIMARY KEY,
			dedupe_key      TEXT NOT NULL UNIQUE,
			occurred_at     %[2]s NOT NULL,
			alert_type      TEXT NOT NULL,
			severity        TEXT,
			organization_id TEXT,
			network_id      TEXT,
			device_serial   TEXT,
			device_mac      TEXT,
			device_name     TEXT,
			client_mac      TEXT,
			image_url       TEXT,
			details         TEXT,
			raw             %[1]s,
			created_at      %[2]s NOT NULL,
			updated_at      %[2]s NOT NULL
		)`, rawType, timeType)

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_order ON events (occurred_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_alert_type ON events (alert_type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_network_id ON events (network_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		slog.Info("Closing database connection")
		return db.conn.Close()
	}
	return nil
}
