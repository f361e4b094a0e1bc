package feedload

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

var importPragmas = map[string]string{
	"synchronous": "OFF",
}

// Import loads the GTFS zip at inputPath into a new SQLite database at
// outputPath. The returned issues are the records skipped (with
// SkipInvalidRecords) and the foreign-id problems found after loading.
func Import(inputPath string, outputPath string, opts *ImportOpts) ([]string, error) {
	if inputPath == "" {
		panic("Missing inputPath")
	}
	if outputPath == "" {
		panic("Missing outputPath")
	}

	if opts == nil {
		opts = &ImportOpts{}
	}
	if err := opts.checkIgnoreFields(); err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Importing %s to %s", inputPath, outputPath))

	inputZip, err := zip.OpenReader(inputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = inputZip.Close() }()

	err = os.Remove(outputPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	db, err := sqlite.OpenConn(outputPath, 0)
	if err != nil {
		return nil, err
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	for pragma, value := range importPragmas {
		err = sqlitex.Exec(db, "PRAGMA "+pragma+" = "+value, sqlitexNoop)
		if err != nil {
			return nil, err
		}
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	imp := &importer{
		db:     db,
		opts:   opts,
		loader: NewLoader(NewFeed(), opts.coerceOptions(), opts.ignoreFields()),
		files:  make(map[string]*zip.File),
	}
	for _, f := range inputZip.File {
		imp.files[path.Base(f.Name)] = f
	}
	if err := imp.load(); err != nil {
		return imp.issues, err
	}

	var validationLogLevel slog.Level
	if opts.ForceValid || opts.IgnoreInvalid {
		validationLogLevel = slog.LevelWarn
	} else {
		validationLogLevel = slog.LevelError
	}

	validationErrors, err := validate(db, validateOpts{
		force:    opts.ForceValid,
		ignore:   opts.IgnoreInvalid,
		logLevel: validationLogLevel,
	})
	issues := append(imp.issues, validationErrors...)
	if err != nil {
		return issues, err
	}

	err = db.Close()
	db = nil
	if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Wrote %s", outputPath))
	return issues, nil
}

type importer struct {
	db     *sqlite.Conn
	opts   *ImportOpts
	loader *Loader
	files  map[string]*zip.File
	issues []string
}

// load reads the feed files in dependency order inside one transaction:
// services before trips, stops and trips before stop times.
func (imp *importer) load() (err error) {
	defer sqlitex.Save(imp.db)(&err)

	calendar := newServiceCalendar(imp.loader.Feed().Services)
	hasCalendar, err := imp.eachRecord("calendar.txt", calendar.addCalendar)
	if err != nil {
		return err
	}
	hasCalendarDates, err := imp.eachRecord("calendar_dates.txt", calendar.addException)
	if err != nil {
		return err
	}
	if !hasCalendar && !hasCalendarDates {
		return errors.New("no calendar.txt or calendar_dates.txt in feed")
	}
	days := 0
	for _, raw := range calendar.records() {
		if err := imp.build(ServiceDays, raw); err != nil {
			if err := imp.rejectServiceDay(raw, err); err != nil {
				return err
			}
			continue
		}
		days++
	}
	slog.Info(fmt.Sprintf("Wrote %d service days for %d services", days, imp.loader.Feed().Services.Len()))

	for _, file := range []struct {
		name string
		kind Kind
	}{
		{"stops.txt", Stops},
		{"routes.txt", Routes},
		{"trips.txt", Trips},
		{"stop_times.txt", StopTimes},
	} {
		kind := file.kind
		found, err := imp.eachRecord(file.name, func(raw map[string]string) error {
			return imp.build(kind, raw)
		})
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no %q file in feed", file.name)
		}
	}

	for name := range imp.files {
		switch name {
		case "calendar.txt", "calendar_dates.txt", "stops.txt", "routes.txt", "trips.txt", "stop_times.txt":
		default:
			slog.Info("Skipping other file " + name)
		}
	}

	if err := derive(imp.db, imp.loader); err != nil {
		return err
	}
	return writeKeys(imp.db, imp.loader.Feed())
}

func (imp *importer) build(kind Kind, raw map[string]string) error {
	e, err := imp.loader.Build(kind, raw)
	if err != nil {
		return err
	}
	return insertEntity(imp.db, e)
}

// eachRecord calls fn for every record of the named file. It reports
// whether the file exists.
func (imp *importer) eachRecord(name string, fn func(map[string]string) error) (bool, error) {
	zipFile, ok := imp.files[name]
	if !ok {
		return false, nil
	}
	inputF, err := zipFile.Open()
	if err != nil {
		return true, err
	}
	defer func() { _ = inputF.Close() }()

	records, err := newRecordReader(name, inputF)
	if err != nil {
		return true, err
	}
	slog.Info(fmt.Sprintf("Importing %s: %s", name, strings.Join(records.Header(), ",")))

	rowCount := 0
	for {
		raw, err := records.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return true, fmt.Errorf("read %s: %w", name, err)
		}
		if err := fn(raw); err != nil {
			if err := imp.reject(name, records.Row(), err); err != nil {
				return true, err
			}
			continue
		}
		rowCount++
	}
	slog.Info(fmt.Sprintf("Loaded %d rows from %s", rowCount, name))
	return true, nil
}

// rejectServiceDay rejects a day produced by calendar expansion. It has no
// source row, so the error names the date and service instead.
func (imp *importer) rejectServiceDay(raw map[string]string, err error) error {
	return imp.reject("service calendar", 0, fmt.Errorf("service %q on %s: %w", raw["service_id"], raw["date"], err))
}

// reject aborts the import with err unless invalid records are skipped, in
// which case it is logged and kept as an issue.
func (imp *importer) reject(file string, row int, err error) error {
	recordErr := &RecordError{File: file, Row: row, Err: err}
	if !imp.opts.SkipInvalidRecords {
		return recordErr
	}
	slog.Warn("Skipping record", "file", file, "row", row, "err", err)
	imp.issues = append(imp.issues, recordErr.Error())
	return nil
}
