package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/frankban/quicktest"
)

func TestPrimaryKey_MySQL(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE").
		WithArgs("shop", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("order_id"))

	conn := &Connection{db: dbMock, Type: MySQL}
	pk, err := conn.PrimaryKey(context.Background(), "shop", "orders")
	c.Assert(err, quicktest.IsNil)
	c.Assert(pk, quicktest.Equals, "order_id")
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestPrimaryKey_PostgreSQL(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	mock.ExpectQuery(`FROM information_schema.table_constraints(.|\n)*tc.table_schema = current_schema\(\)`).
		WithArgs("shop", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	conn := &Connection{db: dbMock, Type: PostgreSQL}
	pk, err := conn.PrimaryKey(context.Background(), "shop", "orders")
	c.Assert(err, quicktest.IsNil)
	c.Assert(pk, quicktest.Equals, "id")
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestPrimaryKey_SQLite(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	mock.ExpectQuery("FROM pragma_table_info").
		WithArgs("orders").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("id"))

	conn := &Connection{db: dbMock, Type: SQLite}
	pk, err := conn.PrimaryKey(context.Background(), "/tmp/shop.db", "orders")
	c.Assert(err, quicktest.IsNil)
	c.Assert(pk, quicktest.Equals, "id")
}

func TestPrimaryKey_NoRows(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}))

	conn := &Connection{db: dbMock, Type: MySQL}
	_, err = conn.PrimaryKey(context.Background(), "shop", "logs")
	c.Assert(err, quicktest.ErrorMatches, "no primary key found for table logs in database shop")
}

func TestPrimaryKey_QueryError(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE").WillReturnError(errors.New("fail"))
	conn := &Connection{db: dbMock, Type: MySQL}
	_, err = conn.PrimaryKey(context.Background(), "shop", "logs")

	var qerr *QueryExecutionError
	c.Assert(errors.As(err, &qerr), quicktest.IsTrue)
	c.Assert(qerr.Err, quicktest.ErrorMatches, "fail")
}

func TestPrimaryKey_UnsupportedDB(t *testing.T) {
	c := quicktest.New(t)
	conn := &Connection{Type: "oracle"}
	_, err := conn.PrimaryKey(context.Background(), "shop", "logs")
	c.Assert(err, quicktest.ErrorMatches, "unsupported database type: oracle")
}

func TestPrimaryKeyCache_NilSafe(t *testing.T) {
	c := quicktest.New(t)
	var cache *PrimaryKeyCache
	cache.put(primaryKeyID{table: "t"}, "id")
	_, ok := cache.get(primaryKeyID{table: "t"})
	c.Assert(ok, quicktest.IsFalse)
	cache.Reset()
	c.Assert(cache.Len(), quicktest.Equals, 0)
}
