package feedload

import (
	"fmt"
	"slices"
	"time"
)

const gtfsDateLayout = "20060102"

var weekdayColumns = [...]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// serviceCalendar expands calendar.txt and calendar_dates.txt into the
// (date, service) pairs written to the days table. It is the collaborator
// that fills the service table; services are interned in first-seen order.
type serviceCalendar struct {
	services *IDTable
	days     map[string]map[int64]bool
}

func newServiceCalendar(services *IDTable) *serviceCalendar {
	return &serviceCalendar{services: services, days: make(map[string]map[int64]bool)}
}

// addCalendar activates the service on every flagged weekday between
// start_date and end_date inclusive.
func (c *serviceCalendar) addCalendar(raw map[string]string) error {
	key, ok := raw["service_id"]
	if !ok {
		return missingField("service_id")
	}
	start, err := parseDate(raw, "start_date")
	if err != nil {
		return err
	}
	end, err := parseDate(raw, "end_date")
	if err != nil {
		return err
	}
	var active [7]bool
	for day, column := range weekdayColumns {
		switch raw[column] {
		case "1":
			active[day] = true
		case "0", "":
		default:
			return &FieldError{Kind: ServiceDays, Field: column, Value: raw[column],
				Err: fmt.Errorf("%w: expected 0 or 1", ErrConversion)}
		}
	}

	id := c.services.Intern(key)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if active[d.Weekday()] {
			c.set(d.Format(gtfsDateLayout), id, true)
		}
	}
	return nil
}

// addException applies one calendar_dates.txt row: exception_type 1 adds the
// service on that date, 2 removes it.
func (c *serviceCalendar) addException(raw map[string]string) error {
	key, ok := raw["service_id"]
	if !ok {
		return missingField("service_id")
	}
	date, err := parseDate(raw, "date")
	if err != nil {
		return err
	}
	id := c.services.Intern(key)
	switch raw["exception_type"] {
	case "1":
		c.set(date.Format(gtfsDateLayout), id, true)
	case "2":
		c.set(date.Format(gtfsDateLayout), id, false)
	default:
		return &FieldError{Kind: ServiceDays, Field: "exception_type", Value: raw["exception_type"],
			Err: fmt.Errorf("%w: expected 1 or 2", ErrConversion)}
	}
	return nil
}

func (c *serviceCalendar) set(date string, service int64, active bool) {
	if active {
		if c.days[date] == nil {
			c.days[date] = make(map[int64]bool)
		}
		c.days[date][service] = true
	} else if c.days[date] != nil {
		delete(c.days[date], service)
	}
}

// records returns one raw ServiceDay record per active (date, service),
// ordered by date and then by service id.
func (c *serviceCalendar) records() []map[string]string {
	keys := c.services.Keys()
	dates := make([]string, 0, len(c.days))
	for date := range c.days {
		dates = append(dates, date)
	}
	slices.Sort(dates)

	var out []map[string]string
	for _, date := range dates {
		services := make([]int64, 0, len(c.days[date]))
		for id := range c.days[date] {
			services = append(services, id)
		}
		slices.Sort(services)
		for _, id := range services {
			out = append(out, map[string]string{"date": date, "service_id": keys[id]})
		}
	}
	return out
}

func parseDate(raw map[string]string, field string) (time.Time, error) {
	v, ok := raw[field]
	if !ok {
		return time.Time{}, missingField(field)
	}
	t, err := time.Parse(gtfsDateLayout, v)
	if err != nil {
		return time.Time{}, &FieldError{Kind: ServiceDays, Field: field, Value: v,
			Err: fmt.Errorf("%w: not a YYYYMMDD date", ErrConversion)}
	}
	return t, nil
}

func missingField(field string) error {
	return &FieldError{Kind: ServiceDays, Field: field,
		Err: fmt.Errorf("%w: required field %q is missing", ErrSchemaMismatch, field)}
}
