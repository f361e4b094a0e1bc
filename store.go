package feedload

import (
	"fmt"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

const keysTable = "__feedload_keys"

func sqlitexNoop(*sqlite.Stmt) error { return nil }

func createTables(db *sqlite.Conn) error {
	for _, schema := range feedSchema {
		for _, query := range schema.createStatements() {
			if err := sqlitex.ExecTransient(db, query, sqlitexNoop); err != nil {
				return fmt.Errorf("create %s: %w", schema.Kind, err)
			}
		}
	}
	return sqlitex.ExecTransient(db,
		"CREATE TABLE "+keysTable+" (kind TEXT NOT NULL, key TEXT NOT NULL, id INTEGER NOT NULL, PRIMARY KEY (kind, key))",
		sqlitexNoop)
}

// insertEntity writes e using a statement covering exactly the columns
// present in its record. Prepared statements are cached by the connection.
func insertEntity(db *sqlite.Conn, e Entity) error {
	schema := schemaFor(e.Kind)
	var columns []string
	var values []Value
	for _, col := range schema.Columns {
		if v, ok := e.Record[col.Name]; ok {
			columns = append(columns, col.Name)
			values = append(values, v)
		}
	}

	var argFragments []string
	for i := range columns {
		argFragments = append(argFragments, fmt.Sprintf("?%d", i+1))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		e.Kind, strings.Join(columns, ", "), strings.Join(argFragments, ", "))
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	if err := stmt.Reset(); err != nil {
		return err
	}
	if err := stmt.ClearBindings(); err != nil {
		return err
	}
	for i, v := range values {
		bindValue(stmt, i+1, v)
	}
	for {
		rowReturned, err := stmt.Step()
		if err != nil {
			return fmt.Errorf("insert into %s: %w", e.Kind, err)
		}
		if !rowReturned {
			return nil
		}
	}
}

func bindValue(stmt *sqlite.Stmt, param int, v Value) {
	if v.Null {
		stmt.BindNull(param)
		return
	}
	switch v.Type {
	case Integer:
		stmt.BindInt64(param, v.Int)
	case Float:
		stmt.BindFloat(param, v.Float)
	default:
		stmt.BindText(param, v.Text)
	}
}

// writeKeys records every id table of feed so rows can be traced back to
// the external keys they were built from.
func writeKeys(db *sqlite.Conn, feed *Feed) error {
	query := "INSERT INTO " + keysTable + " (kind, key, id) VALUES (?, ?, ?)"
	for _, table := range feed.tables() {
		for id, key := range table.Keys() {
			if err := sqlitex.Exec(db, query, sqlitexNoop, table.Name(), key, int64(id)); err != nil {
				return err
			}
		}
	}
	return nil
}
