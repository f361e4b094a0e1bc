package feedload

import (
	"fmt"
	"log/slog"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// derive fills the tables and columns computed from the loaded feed:
// trips.last_stop_sequence, directed_routes, routes_at_stops and
// trips.is_representative.
func derive(db *sqlite.Conn, loader *Loader) error {
	err := sqlitex.ExecScript(db, `
UPDATE trips SET last_stop_sequence =
	(SELECT max(stop_sequence) FROM stop_times WHERE stop_times.trip_id = trips.trip_id);
`)
	if err != nil {
		return fmt.Errorf("last stop sequences: %w", err)
	}

	// The modal headsign is the most common one among the route's trips in
	// that direction; ties go to the alphabetically first. It is NULL when
	// none of the trips has one. Trips without a route have no directed route.
	var directed []Entity
	err = sqlitex.Exec(db, `
SELECT t.route_id AS route_id,
       ifnull(t.direction_id, '') AS direction_id,
       (SELECT trip_headsign FROM trips h
         WHERE h.route_id = t.route_id AND h.direction_id IS t.direction_id
           AND h.trip_headsign IS NOT NULL
         GROUP BY trip_headsign
         ORDER BY count(*) DESC, trip_headsign
         LIMIT 1) AS route_modal_headsign
FROM trips t
WHERE t.route_id IS NOT NULL AND t.route_id != ''
GROUP BY t.route_id, t.direction_id
ORDER BY t.route_id, t.direction_id`, func(stmt *sqlite.Stmt) error {
		raw := map[string]string{
			"route_id":     stmt.GetText("route_id"),
			"direction_id": stmt.GetText("direction_id"),
		}
		if stmt.ColumnType(2) != sqlite.SQLITE_NULL {
			raw["route_modal_headsign"] = stmt.ColumnText(2)
		}
		e, err := loader.DirectedRoute(raw)
		if err != nil {
			return err
		}
		directed = append(directed, e)
		return nil
	})
	if err != nil {
		return fmt.Errorf("directed routes: %w", err)
	}
	for _, e := range directed {
		if err := insertEntity(db, e); err != nil {
			return err
		}
	}

	err = sqlitex.ExecScript(db, `
INSERT INTO routes_at_stops (directed_route_id, stop_id)
	SELECT DISTINCT d._id, st.stop_id
	FROM stop_times st
	JOIN trips t ON t.trip_id = st.trip_id
	JOIN directed_routes d ON d.route_id = t.route_id AND d.direction_id IS t.direction_id
	ORDER BY d._id, st.stop_id;

UPDATE trips SET is_representative = 1 WHERE trip_id IN
	(SELECT (SELECT r.trip_id FROM trips r
	          WHERE r.route_id = d.route_id AND r.direction_id IS d.direction_id
	          ORDER BY r.last_stop_sequence DESC, r.trip_id
	          LIMIT 1)
	 FROM directed_routes d);
`)
	if err != nil {
		return fmt.Errorf("route stops: %w", err)
	}

	slog.Info(fmt.Sprintf("Derived %d directed routes", len(directed)))
	return nil
}
