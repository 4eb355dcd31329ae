package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andys/dbsensor/reading"
)

// DefaultCaptureTable is where captured readings are stored unless told otherwise
const DefaultCaptureTable = "sensor_captures"

var captureColumns = []string{"sensor", "reading_key", "payload", "captured_at"}

// CaptureStore persists captured readings into a table of a destination database
type CaptureStore struct {
	conn  *Connection
	table string
}

// NewCaptureStore stores captures through conn into table
func NewCaptureStore(conn *Connection, table string) *CaptureStore {
	if table == "" {
		table = DefaultCaptureTable
	}
	return &CaptureStore{conn: conn, table: table}
}

func escapeIdentifier(identifier string, dbType DBType) string {
	switch dbType {
	case MySQL:
		return fmt.Sprintf("`%s`", identifier)
	case PostgreSQL, SQLite:
		return fmt.Sprintf(`"%s"`, identifier)
	default:
		return identifier
	}
}

func escapeIdentifiers(identifiers []string, dbType DBType) []string {
	escaped := make([]string, len(identifiers))
	for i, id := range identifiers {
		escaped[i] = escapeIdentifier(id, dbType)
	}
	return escaped
}

// EnsureTable creates the capture table if it does not exist
func (s *CaptureStore) EnsureTable(ctx context.Context) error {
	if s.conn == nil || s.conn.db == nil {
		return fmt.Errorf("sql: database is closed")
	}
	t := s.conn.Type
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(255) NOT NULL, %s VARCHAR(255) NOT NULL, %s TEXT NOT NULL, %s TIMESTAMP NOT NULL)",
		escapeIdentifier(s.table, t),
		escapeIdentifier("sensor", t),
		escapeIdentifier("reading_key", t),
		escapeIdentifier("payload", t),
		escapeIdentifier("captured_at", t),
	)
	if _, err := s.conn.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create capture table: %s, error: %w", query, err)
	}
	return nil
}

// Save inserts one row per reading entry, all in a single transaction
func (s *CaptureStore) Save(ctx context.Context, sensor string, r reading.Reading, capturedAt time.Time) error {
	if s.conn == nil || s.conn.db == nil {
		return fmt.Errorf("sql: database is closed")
	}
	if len(r) == 0 {
		return nil
	}

	t := s.conn.Type
	placeholders := make([]string, len(captureColumns))
	for i := range captureColumns {
		placeholders[i] = t.placeholder(i + 1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		escapeIdentifier(s.table, t),
		strings.Join(escapeIdentifiers(captureColumns, t), ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := s.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range r.Keys() {
		payload, err := json.Marshal(r[key])
		if err != nil {
			return fmt.Errorf("failed to encode reading %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, query, sensor, key, string(payload), capturedAt.UTC()); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (s *CaptureStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
