package feedload

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

type ExportOpts struct {
	// SkipKeys leaves keys.txt out of the export.
	SkipKeys bool
}

// Export writes every table of a loaded database to a zip with one CSV file
// per table. Rows keep their dense ids; keys.txt maps them back to the
// external feed keys.
func Export(inputPath string, outputPath string, opts *ExportOpts) error {
	if inputPath == "" {
		panic("Missing inputPath")
	}
	if outputPath == "" {
		panic("Missing outputPath")
	}
	if opts == nil {
		opts = &ExportOpts{}
	}

	slog.Info(fmt.Sprintf("Exporting %s to %s", inputPath, outputPath))

	db, err := sqlite.OpenConn(inputPath, sqlite.SQLITE_OPEN_READONLY)
	if err != nil {
		return err
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	outputF, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	outputZip := zip.NewWriter(outputF)
	defer func() {
		_ = outputZip.Close()
		_ = outputF.Close()
	}()

	for _, schema := range feedSchema {
		cols := schema.columnNames()
		if err := exportTableIn(db, outputZip, string(schema.Kind), cols, strings.Join(cols, ", ")); err != nil {
			return err
		}
	}
	if !opts.SkipKeys {
		err := exportTableIn(db, outputZip, keysTable, []string{"kind", "key", "id"}, "kind, id")
		if err != nil {
			return err
		}
	}

	if err := outputZip.Close(); err != nil {
		return err
	}
	if err := outputF.Close(); err != nil {
		return err
	}

	err = db.Close()
	db = nil
	if err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Wrote %s", outputPath))
	return nil
}

func exportTableIn(db *sqlite.Conn, outputZip *zip.Writer, table string, cols []string, orderBy string) error {
	outputName := strings.TrimPrefix(table, "__feedload_") + ".txt"
	outputF, err := outputZip.Create(outputName)
	if err != nil {
		return err
	}
	outputCSV := csv.NewWriter(outputF)
	defer func() {
		outputCSV.Flush()
	}()

	if err := outputCSV.Write(cols); err != nil {
		return err
	}

	rowCount := 0
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(cols, ", "), table, orderBy)
	err = sqlitex.Exec(db, query, func(stmt *sqlite.Stmt) error {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = stmt.GetText(col)
		}
		if err := outputCSV.Write(row); err != nil {
			return err
		}
		rowCount++
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("Wrote %d rows to %s", rowCount, outputName))

	outputCSV.Flush()
	return outputCSV.Error()
}
