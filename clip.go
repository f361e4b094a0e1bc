package feedload

import (
	"fmt"
	"log/slog"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/tidwall/geojson"
	"github.com/tidwall/geojson/geometry"
)

// Clip writes a copy of a loaded database keeping only the trips that call
// at a stop inside clipFeature, and the rows those trips depend on. Dense
// ids are kept, so the clipped tables may have gaps.
func Clip(inputPath string, outputPath string, clipFeature string) error {
	feature, err := geojson.Parse(clipFeature, &geojson.ParseOptions{RequireValid: true})
	if err != nil {
		return fmt.Errorf("parse clip feature: %w", err)
	}

	slog.Info(fmt.Sprintf("Writing a clipped copy of %s to %s (clipFeature has %d points)",
		inputPath, outputPath, feature.NumPoints()))

	inputDB, err := sqlite.OpenConn(inputPath, sqlite.SQLITE_OPEN_READONLY)
	if err != nil {
		return err
	}
	defer func() {
		if inputDB != nil {
			_ = inputDB.Close()
		}
	}()

	db, err := inputDB.BackupToDB("", outputPath)
	if err != nil {
		return err
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	err = inputDB.Close()
	inputDB = nil
	if err != nil {
		return err
	}
	slog.Info("Copied input db")

	if err := sqlitex.ExecTransient(db, "CREATE TABLE __feedload_stops_inside (stop_id INTEGER)", sqlitexNoop); err != nil {
		return err
	}

	var inside []int64
	totalStopCount := 0
	err = sqlitex.Exec(db, "SELECT _id, stop_lon, stop_lat FROM stops", func(stmt *sqlite.Stmt) error {
		totalStopCount++
		point := geojson.NewPoint(geometry.Point{X: stmt.GetFloat("stop_lon"), Y: stmt.GetFloat("stop_lat")})
		if feature.Contains(point) {
			inside = append(inside, stmt.GetInt64("_id"))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range inside {
		if err := sqlitex.Exec(db, "INSERT INTO __feedload_stops_inside (stop_id) VALUES (?)", sqlitexNoop, id); err != nil {
			return err
		}
	}
	slog.Info(fmt.Sprintf("%d of %d stops are inside", len(inside), totalStopCount))

	script := `
DELETE FROM trips
	WHERE trip_id NOT IN (SELECT DISTINCT trip_id FROM stop_times WHERE stop_id IN __feedload_stops_inside);

DELETE FROM stop_times WHERE trip_id NOT IN (SELECT trip_id FROM trips);

DELETE FROM stops WHERE _id NOT IN (SELECT DISTINCT stop_id FROM stop_times);

DELETE FROM routes WHERE route_id NOT IN (SELECT DISTINCT route_id FROM trips);

DELETE FROM directed_routes WHERE _id NOT IN
	(SELECT d._id FROM directed_routes d
	 JOIN trips t ON t.route_id = d.route_id AND t.direction_id IS d.direction_id);

DELETE FROM routes_at_stops WHERE
  directed_route_id NOT IN (SELECT _id FROM directed_routes) OR
  stop_id NOT IN (SELECT _id FROM stops);

DELETE FROM days WHERE service_id NOT IN (SELECT DISTINCT service_id FROM trips);

DELETE FROM __feedload_keys WHERE
  (kind = 'stops' AND id NOT IN (SELECT _id FROM stops)) OR
  (kind = 'trips' AND id NOT IN (SELECT trip_id FROM trips)) OR
  (kind = 'directed_routes' AND id NOT IN (SELECT _id FROM directed_routes)) OR
  (kind = 'services' AND id NOT IN (SELECT service_id FROM days));

DROP TABLE __feedload_stops_inside;
`
	if err := sqlitex.ExecScript(db, script); err != nil {
		return err
	}
	if _, err = validate(db, validateOpts{logLevel: slog.LevelError}); err != nil {
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
