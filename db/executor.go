package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andys/dbsensor/config"
)

// Result is the outcome of one Execute call.
// Columns, Rows and PrimaryKey are only set for read statements.
type Result struct {
	Columns      []string
	Rows         [][]interface{}
	PrimaryKey   string
	RowsAffected int64
}

// ConnectFunc opens a connection for one call
type ConnectFunc func(ctx context.Context, desc config.ConnectionDescriptor) (*Connection, error)

// Executor runs single statements, each on its own connection
type Executor struct {
	connect ConnectFunc
	cache   *PrimaryKeyCache
	logger  *slog.Logger
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithConnectFunc replaces the function used to open connections
func WithConnectFunc(fn ConnectFunc) ExecutorOption {
	return func(e *Executor) {
		e.connect = fn
	}
}

// WithPrimaryKeyCache enables caching of primary key lookups
func WithPrimaryKeyCache(cache *PrimaryKeyCache) ExecutorOption {
	return func(e *Executor) {
		e.cache = cache
	}
}

// WithLogger sets the logger used for close failures and debug output
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor that opens connections with Connect
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{connect: Connect}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// IsRead reports whether statement returns rows (a SELECT)
func IsRead(statement string) bool {
	s := strings.TrimSpace(statement)
	return len(s) >= 6 && strings.EqualFold(s[:6], "SELECT")
}

// Execute runs statement against a fresh connection described by desc.
// Reads return every row, the column names and the primary key column of
// desc.Table. Writes are committed and only report the affected row count.
func (e *Executor) Execute(ctx context.Context, desc config.ConnectionDescriptor, statement string) (Result, error) {
	if desc.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, desc.QueryTimeout)
		defer cancel()
	}

	conn, err := e.connect(ctx, desc)
	if err != nil {
		return Result{}, &QueryExecutionError{Statement: statement, Err: err}
	}
	defer e.closeConnection(conn)

	if !IsRead(statement) {
		return conn.execWrite(ctx, statement)
	}

	res, err := conn.queryAll(ctx, statement)
	if err != nil {
		return Result{}, err
	}

	res.PrimaryKey, err = e.primaryKey(ctx, conn, desc)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (e *Executor) primaryKey(ctx context.Context, conn *Connection, desc config.ConnectionDescriptor) (string, error) {
	id := primaryKeyID{dbType: conn.Type, host: desc.Host, database: desc.Database, table: desc.Table}
	if column, ok := e.cache.get(id); ok {
		return column, nil
	}
	column, err := conn.PrimaryKey(ctx, desc.Database, desc.Table)
	if err != nil {
		return "", err
	}
	e.cache.put(id, column)
	return column, nil
}

func (e *Executor) closeConnection(conn *Connection) {
	if err := conn.Close(); err != nil {
		e.logger.Warn("failed to close database connection", slog.String("type", string(conn.Type)), slog.Any("error", err))
	}
}

func (c *Connection) queryAll(ctx context.Context, statement string) (Result, error) {
	rows, err := c.db.QueryContext(ctx, statement)
	if err != nil {
		return Result{}, &QueryExecutionError{Statement: statement, Err: err}
	}
	defer rows.Close()

	// Get column names
	columns, err := rows.Columns()
	if err != nil {
		return Result{}, &QueryExecutionError{Statement: statement, Err: fmt.Errorf("failed to get columns: %w", err)}
	}

	// Prepare value holders
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	res := Result{Columns: columns, Rows: make([][]interface{}, 0)}
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return Result{}, &QueryExecutionError{Statement: statement, Err: fmt.Errorf("failed to scan row: %w", err)}
		}
		row := make([]interface{}, len(values))
		copy(row, values)
		res.Rows = append(res.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return Result{}, &QueryExecutionError{Statement: statement, Err: fmt.Errorf("error iterating rows: %w", err)}
	}
	return res, nil
}

func (c *Connection) execWrite(ctx context.Context, statement string) (Result, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, &QueryExecutionError{Statement: statement, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, statement)
	if err != nil {
		return Result{}, &QueryExecutionError{Statement: statement, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, &QueryExecutionError{Statement: statement, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		affected = -1
	}
	return Result{RowsAffected: affected}, nil
}
