package feedload

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(ignore map[Kind][]string) *Loader {
	return NewLoader(NewFeed(), CoerceOptions{}, ignore)
}

func TestTripResolvesService(t *testing.T) {
	l := newTestLoader(nil)
	for i := range 7 {
		l.Feed().Services.Intern(fmt.Sprintf("S%d", i))
	}
	require.EqualValues(t, 7, l.Feed().Services.Intern("WKDY"))

	e, err := l.Trip(map[string]string{
		"trip_id":       "T1",
		"service_id":    "WKDY",
		"route_id":      "95",
		"trip_headsign": "Barrhaven Centre",
		"direction_id":  "1",
		"block_id":      "E2041",
		"shape_id":      "",
	})
	require.NoError(t, err)
	expected := Record{
		"trip_id":       IntValue(0),
		"service_id":    IntValue(7),
		"route_id":      TextValue("95"),
		"trip_headsign": TextValue("Barrhaven Centre"),
		"direction_id":  IntValue(1),
		"block_id":      IntValue(2041),
		"shape_id":      NullValue(Integer),
	}
	if diff := cmp.Diff(expected, e.Record); diff != "" {
		t.Errorf("trip record (-want +got):\n%s", diff)
	}
	assert.Equal(t, Trips, e.Kind)

	e, err = l.Trip(map[string]string{"trip_id": "T2", "service_id": "WKDY"})
	require.NoError(t, err)
	assert.Equal(t, IntValue(1), e.Record["trip_id"])
	assert.Equal(t, IntValue(7), e.Record["service_id"])
}

func TestTripErrors(t *testing.T) {
	l := newTestLoader(nil)
	l.Feed().Services.Intern("WKDY")

	_, err := l.Trip(map[string]string{"trip_id": "T1", "service_id": "SUN"})
	require.ErrorIs(t, err, ErrUnresolvedReference)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, Trips, fieldErr.Kind)
	assert.Equal(t, "service_id", fieldErr.Field)
	assert.Equal(t, "SUN", fieldErr.Value)

	_, err = l.Trip(map[string]string{"trip_id": "T1", "service_id": "WKDY", "direction_id": "north"})
	require.ErrorIs(t, err, ErrConversion)

	_, err = l.Trip(map[string]string{"service_id": "WKDY"})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	// None of the failures above consumed an id.
	e, err := l.Trip(map[string]string{"trip_id": "T1", "service_id": "WKDY"})
	require.NoError(t, err)
	assert.Equal(t, IntValue(0), e.Record["trip_id"])

	_, err = l.Trip(map[string]string{"trip_id": "T1", "service_id": "WKDY"})
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, l.Feed().Trips.Len())
}

func TestStopAssignsDenseIDs(t *testing.T) {
	l := newTestLoader(nil)

	a, err := l.Stop(map[string]string{"stop_id": "A", "stop_lat": "45.1", "stop_lon": "-75.1"})
	require.NoError(t, err)
	b, err := l.Stop(map[string]string{"stop_id": "B", "stop_lat": "45.2", "stop_lon": "-75.2"})
	require.NoError(t, err)
	_, err = l.Stop(map[string]string{"stop_id": "A", "stop_lat": "45.3", "stop_lon": "-75.3"})
	require.ErrorIs(t, err, ErrDuplicateKey)

	assert.Equal(t, IntValue(0), a.Record["_id"])
	assert.Equal(t, TextValue("A"), a.Record["stop_id"])
	assert.Equal(t, IntValue(1), b.Record["_id"])
	assert.Equal(t, []string{"A", "B"}, l.Feed().Stops.Keys())

	_, err = l.Stop(map[string]string{"stop_name": "nameless"})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestStopIgnoreOverride(t *testing.T) {
	raw := map[string]string{"stop_id": "A", "parent_station": "P", "stop_desc": "d"}

	_, err := newTestLoader(nil).Stop(raw)
	require.ErrorIs(t, err, ErrSchemaMismatch)

	e, err := newTestLoader(map[Kind][]string{Stops: {"parent_station"}}).Stop(raw)
	require.NoError(t, err)
	assert.NotContains(t, e.Record, "parent_station")
	assert.NotContains(t, e.Record, "stop_desc")
}

func TestStopTime(t *testing.T) {
	l := newTestLoader(nil)
	l.Feed().Services.Intern("WKDY")
	for _, id := range []string{"S1", "S2"} {
		_, err := l.Stop(map[string]string{"stop_id": id})
		require.NoError(t, err)
	}
	_, err := l.Trip(map[string]string{"trip_id": "T1", "service_id": "WKDY"})
	require.NoError(t, err)

	e, err := l.StopTime(map[string]string{
		"trip_id":        "T1",
		"arrival_time":   "08:15:00",
		"departure_time": "08:16:00",
		"stop_id":        "S2",
		"stop_sequence":  "3",
		"pickup_type":    "",
		"drop_off_type":  "1",
	})
	require.NoError(t, err)
	expected := Record{
		"trip_id":       IntValue(0),
		"arrival_time":  IntValue(495),
		"stop_id":       IntValue(1),
		"stop_sequence": IntValue(3),
		"pickup_type":   NullValue(Integer),
		"drop_off_type": IntValue(1),
	}
	if diff := cmp.Diff(expected, e.Record); diff != "" {
		t.Errorf("stop time record (-want +got):\n%s", diff)
	}

	_, err = l.StopTime(map[string]string{"trip_id": "T1", "stop_id": "S9", "arrival_time": "08:15:00"})
	require.ErrorIs(t, err, ErrUnresolvedReference)
	assert.Contains(t, err.Error(), "S9")

	_, err = l.StopTime(map[string]string{"trip_id": "T9", "stop_id": "S1", "arrival_time": "08:15:00"})
	require.ErrorIs(t, err, ErrUnresolvedReference)

	_, err = l.StopTime(map[string]string{"trip_id": "T1", "stop_id": "S1", "arrival_time": "8:15:00"})
	require.ErrorIs(t, err, ErrMalformedTime)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "arrival_time", fieldErr.Field)
}

func TestServiceDayAndRoute(t *testing.T) {
	l := newTestLoader(nil)
	l.Feed().Services.Intern("SAT")

	e, err := l.ServiceDay(map[string]string{"date": "20240106", "service_id": "SAT"})
	require.NoError(t, err)
	assert.Equal(t, Record{"date": TextValue("20240106"), "service_id": IntValue(0)}, e.Record)

	_, err = l.ServiceDay(map[string]string{"date": "20240106", "service_id": "SUN"})
	require.ErrorIs(t, err, ErrUnresolvedReference)

	e, err = l.Route(map[string]string{"route_id": "95", "route_short_name": "95", "route_type": "3"})
	require.NoError(t, err)
	assert.Equal(t, Record{"route_id": TextValue("95"), "route_short_name": TextValue("95")}, e.Record)
}

func TestDirectedRoute(t *testing.T) {
	l := newTestLoader(nil)

	e, err := l.DirectedRoute(map[string]string{"route_id": "95", "direction_id": "0", "route_modal_headsign": "Orleans"})
	require.NoError(t, err)
	assert.Equal(t, IntValue(0), e.Record["_id"])
	assert.Equal(t, IntValue(0), e.Record["direction_id"])

	e, err = l.DirectedRoute(map[string]string{"route_id": "95", "direction_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, IntValue(1), e.Record["_id"])

	_, err = l.DirectedRoute(map[string]string{"route_id": "95", "direction_id": "1"})
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestBuildDispatch(t *testing.T) {
	l := newTestLoader(nil)
	e, err := l.Build(Stops, map[string]string{"stop_id": "A"})
	require.NoError(t, err)
	assert.Equal(t, Stops, e.Kind)

	_, err = l.Build(RoutesAtStops, map[string]string{})
	require.Error(t, err)
}
