package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

const mysqlPrimaryKeyQuery = `
        SELECT COLUMN_NAME
        FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
        WHERE TABLE_SCHEMA = ?
            AND TABLE_NAME = ?
            AND CONSTRAINT_NAME = 'PRIMARY'
        ORDER BY ORDINAL_POSITION
        LIMIT 1`

const postgresPrimaryKeyQuery = `
        SELECT kcu.column_name
        FROM information_schema.table_constraints tc
        JOIN information_schema.key_column_usage kcu
            ON tc.constraint_name = kcu.constraint_name
            AND tc.table_schema = kcu.table_schema
            AND tc.table_name = kcu.table_name
        WHERE tc.constraint_type = 'PRIMARY KEY'
            AND tc.table_catalog = $1
            AND tc.table_schema = current_schema()
            AND tc.table_name = $2
        ORDER BY kcu.ordinal_position
        LIMIT 1`

const sqlitePrimaryKeyQuery = `SELECT name FROM pragma_table_info(?) WHERE pk = 1 ORDER BY pk LIMIT 1`

// PrimaryKey returns the first declared primary key column of table.
// A table without one yields a *SchemaIntrospectionError.
func (c *Connection) PrimaryKey(ctx context.Context, database, table string) (string, error) {
	var (
		query string
		args  []interface{}
	)
	switch c.Type {
	case MySQL:
		query, args = mysqlPrimaryKeyQuery, []interface{}{database, table}
	case PostgreSQL:
		query, args = postgresPrimaryKeyQuery, []interface{}{database, table}
	case SQLite:
		query, args = sqlitePrimaryKeyQuery, []interface{}{table}
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.Type)
	}

	var column string
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&column)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &SchemaIntrospectionError{Database: database, Table: table}
	}
	if err != nil {
		return "", &QueryExecutionError{Statement: query, Err: err}
	}
	return column, nil
}

type primaryKeyID struct {
	dbType   DBType
	host     string
	database string
	table    string
}

// PrimaryKeyCache remembers primary key lookups between polls.
// Safe for concurrent use.
type PrimaryKeyCache struct {
	mu      sync.Mutex
	entries map[primaryKeyID]string
}

// NewPrimaryKeyCache returns an empty cache
func NewPrimaryKeyCache() *PrimaryKeyCache {
	return &PrimaryKeyCache{entries: make(map[primaryKeyID]string)}
}

func (p *PrimaryKeyCache) get(id primaryKeyID) (string, bool) {
	if p == nil {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	column, ok := p.entries[id]
	return column, ok
}

func (p *PrimaryKeyCache) put(id primaryKeyID, column string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[id] = column
}

// Reset drops every cached entry
func (p *PrimaryKeyCache) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[primaryKeyID]string)
}

// Len returns the number of cached lookups
func (p *PrimaryKeyCache) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
