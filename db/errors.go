package db

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// QueryExecutionError wraps a driver failure while running a statement
type QueryExecutionError struct {
	Statement string
	Err       error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("failed to execute query %q: %v", e.Statement, e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

// MySQLCode returns the server error number when the failure came from MySQL
func (e *QueryExecutionError) MySQLCode() (uint16, bool) {
	var mysqlErr *mysql.MySQLError
	if errors.As(e.Err, &mysqlErr) {
		return mysqlErr.Number, true
	}
	return 0, false
}

// SchemaIntrospectionError reports a table without a declared primary key
type SchemaIntrospectionError struct {
	Database string
	Table    string
}

func (e *SchemaIntrospectionError) Error() string {
	return fmt.Sprintf("no primary key found for table %s in database %s", e.Table, e.Database)
}
