// Package mysqladapter is a reference transport.TableService backed by
// database/sql and github.com/go-sql-driver/mysql.
//
// It exists so the CLI and the engine's test suite have a concrete,
// locally runnable collaborator to exercise load/query against, without
// depending on a proprietary columnar service. It is a local-testing
// shim, not a production backend: plain MySQL has no PAILLIER_SUM, TOP,
// or BigQuery CONTAINS/BYTES/FROM_BASE64 builtins, so this adapter
// recognizes the specific fragment shapes internal/rewrite produces for
// those and evaluates them itself (see query.go) instead of shipping
// them to the server verbatim.
package mysqladapter

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/encql/encql/internal/errs"
	"github.com/encql/encql/internal/transport"
)

// descriptionTable holds one row per table this adapter created, storing
// the opaque description string CreateTable/SetTableDescription manage
// and the creation time table.ID scopes per-column keys to.
const descriptionTable = "encql_table_descriptions"

// Adapter is a transport.TableService over a single MySQL connection.
type Adapter struct {
	db *sql.DB
}

// Open connects to dsn, pings it to fail fast on a bad connection string,
// and ensures the description bookkeeping table exists.
func Open(ctx context.Context, dsn string) (*Adapter, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysqladapter: open: %w", errs.IOError{Err: err})
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysqladapter: ping: %w", errs.IOError{Err: err})
	}

	a := &Adapter{db: db}
	if err := a.ensureDescriptionTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Adapter) ensureDescriptionTable(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s` (\n"+
			"  table_name VARCHAR(255) NOT NULL PRIMARY KEY,\n"+
			"  creation_time_ms BIGINT NOT NULL,\n"+
			"  description LONGTEXT NOT NULL\n"+
			")", descriptionTable))
	if err != nil {
		return fmt.Errorf("mysqladapter: ensureDescriptionTable: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// CreateTable creates tableName's physical columns per columns and
// records description, failing if tableName was already created by this
// adapter.
func (a *Adapter) CreateTable(ctx context.Context, tableName string, columns []transport.Column, description string) error {
	var exists string
	err := a.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT table_name FROM `%s` WHERE table_name = ?", descriptionTable), tableName).Scan(&exists)
	if err == nil {
		return fmt.Errorf("mysqladapter: CreateTable: table %q already exists", tableName)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("mysqladapter: CreateTable: %w", err)
	}

	ddl := createTableDDL(tableName, columns)
	if _, err := a.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysqladapter: CreateTable: %w", err)
	}

	creationTimeMs := nowMillis()
	_, err = a.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO `%s` (table_name, creation_time_ms, description) VALUES (?, ?, ?)", descriptionTable),
		tableName, creationTimeMs, description)
	if err != nil {
		return fmt.Errorf("mysqladapter: CreateTable: recording description: %w", err)
	}
	return nil
}

// GetTableDescription returns the description string and creation time
// stored for tableName.
func (a *Adapter) GetTableDescription(ctx context.Context, tableName string) (string, int64, error) {
	var desc string
	var creationTimeMs int64
	err := a.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT description, creation_time_ms FROM `%s` WHERE table_name = ?", descriptionTable), tableName).
		Scan(&desc, &creationTimeMs)
	if err == sql.ErrNoRows {
		return "", 0, fmt.Errorf("mysqladapter: GetTableDescription: table %q not found", tableName)
	}
	if err != nil {
		return "", 0, fmt.Errorf("mysqladapter: GetTableDescription: %w", err)
	}
	return desc, creationTimeMs, nil
}

// SetTableDescription overwrites tableName's description and adds any
// physical columns present in columns that the table doesn't already
// have (an ALTER TABLE ADD COLUMN per new leaf, best-effort widening
// only).
func (a *Adapter) SetTableDescription(ctx context.Context, tableName string, columns []transport.Column, description string) error {
	existing, err := a.existingColumns(ctx, tableName)
	if err != nil {
		return fmt.Errorf("mysqladapter: SetTableDescription: %w", err)
	}
	for _, c := range columns {
		name := sqlColumnName(c.Name)
		if existing[name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s NULL", tableName, name, mysqlType(c.Type))
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysqladapter: SetTableDescription: widening column %q: %w", name, err)
		}
	}

	_, err = a.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE `%s` SET description = ? WHERE table_name = ?", descriptionTable), description, tableName)
	if err != nil {
		return fmt.Errorf("mysqladapter: SetTableDescription: %w", err)
	}
	return nil
}

func (a *Adapter) existingColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?", tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// InsertRows inserts rows into tableName one statement per row; the
// column set of the first row determines the statement's shape, and
// every row must share it.
func (a *Adapter) InsertRows(ctx context.Context, tableName string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	names := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		names = append(names, name)
	}

	placeholders := make([]string, len(names))
	quoted := make([]string, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		quoted[i] = "`" + sqlColumnName(name) + "`"
	}
	stmt := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)",
		tableName, joinComma(quoted), joinComma(placeholders))

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysqladapter: InsertRows: %w", err)
	}
	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mysqladapter: InsertRows: %w", err)
	}
	defer prepared.Close()

	for _, row := range rows {
		args := make([]any, len(names))
		for i, name := range names {
			args[i] = row[name]
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mysqladapter: InsertRows: %w", err)
		}
	}
	return tx.Commit()
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
