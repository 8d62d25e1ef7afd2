// Package transport defines the boundary between the query engine and
// whatever remote columnar table service actually stores and executes
// against encrypted rows. The engine's core (C1-C9) never talks to a
// database directly; cmd/encql wires a TableService implementation in.
package transport

import "context"

// Row is one result row keyed by response column name, matching
// reassemble.Row's shape so a TableService's Query result can be handed
// straight to a Reassembler.
type Row map[string]any

// TableService is the set of remote operations the CLI needs against a
// table: creation, description read/write (the table description carries
// the encrypted extended schema and the master key hash, per
// internal/table), row insertion, and query execution. A concrete
// backend, like mysqladapter, implements this against whatever SQL or RPC
// surface it actually has.
type TableService interface {
	// CreateTable creates a new table named tableName, laid out according
	// to columns, and stores description as its associated table
	// description text. It fails if tableName already exists.
	CreateTable(ctx context.Context, tableName string, columns []Column, description string) error

	// GetTableDescription returns the raw description string previously
	// stored for tableName via CreateTable, plus the creation time
	// table.ID scopes per-column keys to. Creation time lives alongside
	// the description, not inside it: it is a service-level fact about
	// the table, not part of the encrypted schema payload spec.md's wire
	// format for the description string defines.
	GetTableDescription(ctx context.Context, tableName string) (description string, creationTimeMs int64, err error)

	// SetTableDescription overwrites tableName's stored description, and
	// widens its column layout to include any columns present in
	// columns that the table doesn't already have (narrowing or
	// type changes are not attempted).
	SetTableDescription(ctx context.Context, tableName string, columns []Column, description string) error

	// InsertRows appends rows, each already encrypted and keyed by basic
	// (wire) column name, to tableName.
	InsertRows(ctx context.Context, tableName string, rows []map[string]any) error

	// Query executes sql, the fully rewritten server query produced by
	// internal/rewrite, and returns its raw result rows.
	Query(ctx context.Context, sql string) ([]Row, error)

	// Close releases any connection held by the service.
	Close() error
}

// Column is one flat basic-schema column, as derived from a rewritten
// schema.Schema, that a TableService needs to create or widen a table.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool
}

// ColumnType is the storage type TableService implementations map onto
// their own native column types.
type ColumnType string

const (
	ColumnString    ColumnType = "string"
	ColumnInteger   ColumnType = "integer"
	ColumnFloat     ColumnType = "float"
	ColumnBoolean   ColumnType = "boolean"
	ColumnTimestamp ColumnType = "timestamp"
)
