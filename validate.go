package feedload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// ErrInvalidInput is returned when loaded rows reference rows that do not
// exist, e.g. a trip whose route_id is not in routes.txt.
var ErrInvalidInput = errors.New("invalid input")

type validateOpts struct {
	force    bool
	ignore   bool
	logLevel slog.Level
}

func validate(db *sqlite.Conn, opts validateOpts) ([]string, error) {
	v := &fkValidator{db: db, opts: opts, toDelete: make(map[Kind][]int64)}

	slog.Info("Validating")

	for {
		for _, schema := range feedSchema {
			if err := v.validateTable(schema); err != nil {
				return nil, err
			}
		}
		if len(v.toDelete) == 0 {
			break
		}

		deleted := 0
		for table, rows := range v.toDelete {
			query := fmt.Sprintf("DELETE FROM %s WHERE rowid = ?", table)
			for _, rowid := range rows {
				if err := sqlitex.Exec(db, query, sqlitexNoop, rowid); err != nil {
					return nil, err
				}
				deleted++
			}
		}
		slog.Info(fmt.Sprintf("Re-validating after force deleting %d row(s)", deleted))
		v.toDelete = make(map[Kind][]int64)
		v.pass++
	}

	if len(v.issues) > 0 {
		if opts.force || opts.ignore {
			return v.issues, nil
		} else {
			return v.issues, ErrInvalidInput
		}
	}
	return nil, nil
}

type fkValidator struct {
	db       *sqlite.Conn
	opts     validateOpts
	issues   []string
	pass     int
	toDelete map[Kind][]int64 // table -> rowid
}

func (v *fkValidator) append(msg string, args ...any) {
	issue := fmt.Sprintf(msg, args...)
	slog.Log(context.Background(), v.opts.logLevel, issue)
	v.issues = append(v.issues, issue)
}

func (v *fkValidator) validateTable(schema tableSchema) error {
	for _, column := range schema.Columns {
		if column.ForeignID == nil {
			continue
		}
		if err := v.validateForeignID(schema.Kind, column.Name, *column.ForeignID); err != nil {
			return err
		}
	}
	return nil
}

func (v *fkValidator) validateForeignID(table Kind, column string, schema foreignIDSchema) error {
	// rowid is aliased: SQLite reports it under the INTEGER PRIMARY KEY's
	// name for tables that have one.
	query := fmt.Sprintf("SELECT rowid AS row_ref, * FROM %s WHERE %s IS NOT NULL AND %s NOT IN (SELECT %s FROM %s)",
		table, column, column, schema.Column, schema.Table)

	return sqlitex.Exec(v.db, query, func(stmt *sqlite.Stmt) error {
		rowid := stmt.GetInt64("row_ref")
		value := stmt.GetText(column)

		if v.pass == 0 {
			v.append("%s in %s is not a valid %s [%s]", value, table, column, prettyPrintRow(stmt))
		}

		if v.opts.force {
			v.toDelete[table] = append(v.toDelete[table], rowid)
		}

		return nil
	})
}

func prettyPrintRow(row *sqlite.Stmt) string {
	var out []string
	for i := range row.ColumnCount() {
		column := row.ColumnName(i)
		value := row.GetText(column)
		if column != "row_ref" && value != "" {
			out = append(out, fmt.Sprintf("%s: %s", column, value))
		}
	}
	return strings.Join(out, ", ")
}
