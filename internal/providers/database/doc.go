// Package database implements the relational database service.
//
// The handler speaks database/sql, so the same code serves PostgreSQL
// through the pgx stdlib driver and SQLite through modernc.org/sqlite.
// Placeholders follow the driver: $1 for pgx, ? for sqlite.
//
// Operations:
//   - query: run a read-only statement and return rows
//   - execute: run a write statement and return the affected row count
//   - listTables: list the tables of a schema
//   - describeTable: list the columns of one table
//   - test: connectivity probe
//
// The request's database field (--db=) selects the schema used by
// listTables and describeTable.
package database
