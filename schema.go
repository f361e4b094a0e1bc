package feedload

import (
	"fmt"
	"strings"
)

// Kind names an entity and the table its rows are written to.
type Kind string

const (
	ServiceDays    Kind = "days"
	Stops          Kind = "stops"
	Routes         Kind = "routes"
	DirectedRoutes Kind = "directed_routes"
	RoutesAtStops  Kind = "routes_at_stops"
	Trips          Kind = "trips"
	StopTimes      Kind = "stop_times"
)

// FieldType is the declared type of a column. The set is closed: every
// FieldType has a converter in convert.
type FieldType int

const (
	Integer FieldType = iota
	Text
	Float
)

func (t FieldType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Text:
		return "TEXT"
	case Float:
		return "REAL"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

type tableSchema struct {
	Kind    Kind
	Columns []columnSchema
	Ignore  map[string]bool
	// Composite indexes, in addition to per-column Index.
	Indexes [][]string
}

type columnSchema struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
	Unique     bool
	NotNull    bool
	Default    string
	Index      bool
	ForeignID  *foreignIDSchema
}

type foreignIDSchema struct {
	Table  string
	Column string
}

func (s tableSchema) column(name string) (columnSchema, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return columnSchema{}, false
}

func (s tableSchema) columnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		names = append(names, col.Name)
	}
	return names
}

// withIgnored returns a copy of s that also ignores fields.
func (s tableSchema) withIgnored(fields ...string) tableSchema {
	ignore := make(map[string]bool, len(s.Ignore)+len(fields))
	for f := range s.Ignore {
		ignore[f] = true
	}
	for _, f := range fields {
		ignore[f] = true
	}
	s.Ignore = ignore
	return s
}

func (s tableSchema) createStatements() []string {
	var columnFragments []string
	for _, col := range s.Columns {
		fragment := col.Name + " " + col.Type.String()
		if col.PrimaryKey {
			fragment += " PRIMARY KEY"
		}
		if col.Unique {
			fragment += " UNIQUE"
		}
		if col.NotNull {
			fragment += " NOT NULL"
		}
		if col.Default != "" {
			fragment += " DEFAULT " + col.Default
		}
		columnFragments = append(columnFragments, fragment)
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s)", s.Kind, strings.Join(columnFragments, ", "))}

	for _, col := range s.Columns {
		if col.Index {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX ix_%s_%s ON %s (%s)", s.Kind, col.Name, s.Kind, col.Name))
		}
	}
	for _, cols := range s.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX ix_%s_%s ON %s (%s)",
			s.Kind, strings.Join(cols, "_"), s.Kind, strings.Join(cols, ", ")))
	}
	return stmts
}

func ignoreSet(fields ...string) map[string]bool {
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// feedSchema lists the tables in creation order. A single day can have
// several rows, one per active service.
var feedSchema = []tableSchema{
	{
		Kind: ServiceDays,
		Columns: []columnSchema{
			{Name: "_id", Type: Integer, PrimaryKey: true},
			{Name: "date", Type: Text, Index: true},
			{Name: "service_id", Type: Integer, Index: true},
		},
		Ignore: ignoreSet(),
	},

	{
		Kind: Stops,
		Columns: []columnSchema{
			{Name: "_id", Type: Integer, PrimaryKey: true},
			{Name: "stop_id", Type: Text, Unique: true},
			{Name: "stop_code", Type: Text, Index: true},
			{Name: "stop_name", Type: Text},
			{Name: "stop_lat", Type: Float},
			{Name: "stop_lon", Type: Float},
		},
		Ignore: ignoreSet("stop_desc", "stop_url", "location_type", "zone_id"),
	},

	{
		Kind: Routes,
		Columns: []columnSchema{
			{Name: "route_id", Type: Text, PrimaryKey: true},
			{Name: "route_short_name", Type: Text, Index: true},
			{Name: "route_color", Type: Text},
			{Name: "route_text_color", Type: Text},
		},
		Ignore: ignoreSet("route_long_name", "route_desc", "route_type", "route_url"),
	},

	{
		Kind: DirectedRoutes,
		Columns: []columnSchema{
			{Name: "_id", Type: Integer, PrimaryKey: true},
			{
				Name: "route_id", Type: Text, Index: true,
				ForeignID: &foreignIDSchema{Table: "routes", Column: "route_id"},
			},
			{Name: "direction_id", Type: Integer},
			{Name: "route_modal_headsign", Type: Text},
		},
		Ignore: ignoreSet(),
	},

	{
		Kind: RoutesAtStops,
		Columns: []columnSchema{
			{
				Name: "directed_route_id", Type: Integer, Index: true,
				ForeignID: &foreignIDSchema{Table: "directed_routes", Column: "_id"},
			},
			{
				Name: "stop_id", Type: Integer, Index: true,
				ForeignID: &foreignIDSchema{Table: "stops", Column: "_id"},
			},
		},
		Ignore: ignoreSet(),
	},

	{
		Kind: Trips,
		Columns: []columnSchema{
			{Name: "trip_id", Type: Integer, PrimaryKey: true},
			{
				Name: "route_id", Type: Text, Index: true,
				ForeignID: &foreignIDSchema{Table: "routes", Column: "route_id"},
			},
			{
				Name: "service_id", Type: Integer, Index: true, NotNull: true,
				ForeignID: &foreignIDSchema{Table: "days", Column: "service_id"},
			},
			{Name: "trip_headsign", Type: Text},
			{Name: "direction_id", Type: Integer},
			{Name: "block_id", Type: Integer},
			{Name: "shape_id", Type: Integer},
			{Name: "last_stop_sequence", Type: Integer},
			{Name: "is_representative", Type: Integer, NotNull: true, Default: "0"},
		},
		Ignore: ignoreSet(),
	},

	{
		Kind: StopTimes,
		Columns: []columnSchema{
			{Name: "id", Type: Integer, PrimaryKey: true},
			{
				Name: "trip_id", Type: Integer,
				ForeignID: &foreignIDSchema{Table: "trips", Column: "trip_id"},
			},
			{Name: "arrival_time", Type: Integer}, // minutes from midnight
			{
				Name: "stop_id", Type: Integer, Index: true,
				ForeignID: &foreignIDSchema{Table: "stops", Column: "_id"},
			},
			{Name: "stop_sequence", Type: Integer},
			{Name: "pickup_type", Type: Integer},
			{Name: "drop_off_type", Type: Integer},
		},
		Ignore:  ignoreSet("departure_time"),
		Indexes: [][]string{{"trip_id", "stop_sequence"}},
	},
}

func schemaFor(kind Kind) tableSchema {
	for _, s := range feedSchema {
		if s.Kind == kind {
			return s
		}
	}
	panic("no schema for " + string(kind))
}
