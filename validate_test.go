package feedload

import (
	"log/slog"
	"testing"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlite.Conn {
	t.Helper()
	db, err := sqlite.OpenConn(testTempdir(t)+"/feed.db", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, createTables(db))
	return db
}

func TestValidateEmpty(t *testing.T) {
	issues, err := validate(newTestDB(t), validateOpts{logLevel: slog.LevelError})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateEveryForeignID(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, sqlitex.ExecScript(db, `
INSERT INTO routes (route_id) VALUES ('95');
INSERT INTO stops (_id, stop_id) VALUES (0, 'AA');
INSERT INTO days (date, service_id) VALUES ('20240101', 0);
INSERT INTO directed_routes (_id, route_id, direction_id) VALUES (0, '95', 0), (1, '7', 0);
INSERT INTO routes_at_stops (directed_route_id, stop_id) VALUES (0, 0), (5, 0), (0, 9);
INSERT INTO trips (trip_id, route_id, service_id) VALUES (0, '95', 0), (1, '7', 0), (2, '95', 3);
INSERT INTO stop_times (trip_id, arrival_time, stop_id) VALUES (0, 1, 0), (7, 1, 0), (0, 1, 4);
`))

	issues, err := validate(db, validateOpts{logLevel: slog.LevelError})
	require.ErrorIs(t, err, ErrInvalidInput)

	// One bad row per foreign id column, reported in schema order.
	expected := []struct{ value, table, column string }{
		{"7", "directed_routes", "route_id"},
		{"5", "routes_at_stops", "directed_route_id"},
		{"9", "routes_at_stops", "stop_id"},
		{"7", "trips", "route_id"},
		{"3", "trips", "service_id"},
		{"7", "stop_times", "trip_id"},
		{"4", "stop_times", "stop_id"},
	}
	require.Len(t, issues, len(expected))
	for i, e := range expected {
		assert.Contains(t, issues[i], e.value+" in "+e.table+" is not a valid "+e.column)
	}

	issues, err = validate(db, validateOpts{force: true, logLevel: slog.LevelWarn})
	require.NoError(t, err)
	assert.Len(t, issues, len(expected))
	issues, err = validate(db, validateOpts{logLevel: slog.LevelError})
	require.NoError(t, err)
	assert.Empty(t, issues)
}
