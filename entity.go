package feedload

import (
	"fmt"
)

// Entity is a fully typed row ready to be written to its table.
type Entity struct {
	Kind   Kind
	Record Record
}

// keyFields are the fields each constructor remaps or requires. They are
// never coerced, so they cannot be ignored.
var keyFields = map[Kind][]string{
	ServiceDays:    {"service_id"},
	Stops:          {"stop_id"},
	Routes:         {"route_id"},
	DirectedRoutes: {"route_id", "direction_id"},
	Trips:          {"trip_id", "service_id"},
	StopTimes:      {"trip_id", "stop_id", "arrival_time"},
}

// Loader turns raw records into entities, remapping external keys through
// the tables of its Feed.
type Loader struct {
	feed    *Feed
	opts    CoerceOptions
	schemas map[Kind]tableSchema
}

// NewLoader returns a Loader for feed. ignore adds fields to the ignore set
// of each entity kind on top of the built-in ones.
func NewLoader(feed *Feed, opts CoerceOptions, ignore map[Kind][]string) *Loader {
	schemas := make(map[Kind]tableSchema, len(feedSchema))
	for _, s := range feedSchema {
		schemas[s.Kind] = s.withIgnored(ignore[s.Kind]...)
	}
	return &Loader{feed: feed, opts: opts, schemas: schemas}
}

func (l *Loader) Feed() *Feed {
	return l.feed
}

// Build dispatches raw to the constructor for kind.
func (l *Loader) Build(kind Kind, raw map[string]string) (Entity, error) {
	switch kind {
	case ServiceDays:
		return l.ServiceDay(raw)
	case Stops:
		return l.Stop(raw)
	case Routes:
		return l.Route(raw)
	case DirectedRoutes:
		return l.DirectedRoute(raw)
	case Trips:
		return l.Trip(raw)
	case StopTimes:
		return l.StopTime(raw)
	}
	return Entity{}, fmt.Errorf("no constructor for %q", kind)
}

// ServiceDay resolves service_id through the service table, which the
// calendar expansion fills before any day is built.
func (l *Loader) ServiceDay(raw map[string]string) (Entity, error) {
	keys, rest, err := l.split(ServiceDays, raw, keyFields[ServiceDays]...)
	if err != nil {
		return Entity{}, err
	}
	serviceID, err := l.resolve(ServiceDays, "service_id", l.feed.Services, keys[0])
	if err != nil {
		return Entity{}, err
	}
	rec, err := coerce(l.schemas[ServiceDays], rest, l.opts)
	if err != nil {
		return Entity{}, err
	}
	rec["service_id"] = IntValue(serviceID)
	return Entity{Kind: ServiceDays, Record: rec}, nil
}

// Stop assigns the next dense stop id. stop_id itself is kept as text.
func (l *Loader) Stop(raw map[string]string) (Entity, error) {
	keys, _, err := l.split(Stops, raw, keyFields[Stops]...)
	if err != nil {
		return Entity{}, err
	}
	rec, err := coerce(l.schemas[Stops], raw, l.opts)
	if err != nil {
		return Entity{}, err
	}
	id, err := l.feed.Stops.Assign(keys[0])
	if err != nil {
		return Entity{}, &FieldError{Kind: Stops, Field: "stop_id", Value: keys[0], Err: err}
	}
	rec["_id"] = IntValue(id)
	return Entity{Kind: Stops, Record: rec}, nil
}

func (l *Loader) Route(raw map[string]string) (Entity, error) {
	if _, _, err := l.split(Routes, raw, keyFields[Routes]...); err != nil {
		return Entity{}, err
	}
	rec, err := coerce(l.schemas[Routes], raw, l.opts)
	if err != nil {
		return Entity{}, err
	}
	return Entity{Kind: Routes, Record: rec}, nil
}

// DirectedRoute assigns a dense id per (route_id, direction_id) pair.
func (l *Loader) DirectedRoute(raw map[string]string) (Entity, error) {
	keys, _, err := l.split(DirectedRoutes, raw, keyFields[DirectedRoutes]...)
	if err != nil {
		return Entity{}, err
	}
	rec, err := coerce(l.schemas[DirectedRoutes], raw, l.opts)
	if err != nil {
		return Entity{}, err
	}
	key := keys[0] + "/" + keys[1]
	id, err := l.feed.DirectedRoutes.Assign(key)
	if err != nil {
		return Entity{}, &FieldError{Kind: DirectedRoutes, Field: "route_id", Value: key, Err: err}
	}
	rec["_id"] = IntValue(id)
	return Entity{Kind: DirectedRoutes, Record: rec}, nil
}

// Trip resolves service_id and assigns the next dense trip id. The id is
// assigned last so a rejected trip does not leave a gap.
func (l *Loader) Trip(raw map[string]string) (Entity, error) {
	keys, rest, err := l.split(Trips, raw, keyFields[Trips]...)
	if err != nil {
		return Entity{}, err
	}
	serviceID, err := l.resolve(Trips, "service_id", l.feed.Services, keys[1])
	if err != nil {
		return Entity{}, err
	}
	rec, err := coerce(l.schemas[Trips], rest, l.opts)
	if err != nil {
		return Entity{}, err
	}
	id, err := l.feed.Trips.Assign(keys[0])
	if err != nil {
		return Entity{}, &FieldError{Kind: Trips, Field: "trip_id", Value: keys[0], Err: err}
	}
	rec["trip_id"] = IntValue(id)
	rec["service_id"] = IntValue(serviceID)
	return Entity{Kind: Trips, Record: rec}, nil
}

// StopTime resolves trip_id and stop_id and converts arrival_time to
// minutes since midnight.
func (l *Loader) StopTime(raw map[string]string) (Entity, error) {
	keys, rest, err := l.split(StopTimes, raw, keyFields[StopTimes]...)
	if err != nil {
		return Entity{}, err
	}
	tripID, err := l.resolve(StopTimes, "trip_id", l.feed.Trips, keys[0])
	if err != nil {
		return Entity{}, err
	}
	stopID, err := l.resolve(StopTimes, "stop_id", l.feed.Stops, keys[1])
	if err != nil {
		return Entity{}, err
	}
	arrival, err := ParseTime(keys[2])
	if err != nil {
		return Entity{}, &FieldError{Kind: StopTimes, Field: "arrival_time", Value: keys[2], Err: err}
	}
	rec, err := coerce(l.schemas[StopTimes], rest, l.opts)
	if err != nil {
		return Entity{}, err
	}
	rec["trip_id"] = IntValue(tripID)
	rec["stop_id"] = IntValue(stopID)
	rec["arrival_time"] = IntValue(int64(arrival))
	return Entity{Kind: StopTimes, Record: rec}, nil
}

func (l *Loader) resolve(kind Kind, field string, table *IDTable, key string) (int64, error) {
	id, err := table.Resolve(key)
	if err != nil {
		return 0, &FieldError{Kind: kind, Field: field, Value: key, Err: err}
	}
	return id, nil
}

// split pulls the required key fields out of raw and returns them in order
// along with a copy of raw without them.
func (l *Loader) split(kind Kind, raw map[string]string, fields ...string) ([]string, map[string]string, error) {
	keys := make([]string, len(fields))
	rest := make(map[string]string, len(raw))
	for k, v := range raw {
		rest[k] = v
	}
	for i, f := range fields {
		v, ok := raw[f]
		if !ok {
			return nil, nil, &FieldError{
				Kind:  kind,
				Field: f,
				Err:   fmt.Errorf("%w: required field %q is missing", ErrSchemaMismatch, f),
			}
		}
		keys[i] = v
		delete(rest, f)
	}
	return keys, rest, nil
}
