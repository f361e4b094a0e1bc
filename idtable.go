package feedload

import (
	"sync"
)

// IDTable maps external keys to dense ids. Ids are handed out in first-seen
// order starting at 0, so the id of a key is the number of keys assigned
// before it. Assignment is serialised; Resolve may be called concurrently.
type IDTable struct {
	name string

	mu   sync.RWMutex
	ids  map[string]int64
	keys []string // index is id
}

func NewIDTable(name string) *IDTable {
	return &IDTable{name: name, ids: make(map[string]int64)}
}

func (t *IDTable) Name() string {
	return t.name
}

// Assign gives key the next id. A key can only be assigned once.
func (t *IDTable) Assign(key string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[key]; ok {
		return 0, &KeyError{Table: t.name, Key: key, Err: ErrDuplicateKey}
	}
	return t.assignLocked(key), nil
}

// Intern returns the id of key, assigning one if key is new.
func (t *IDTable) Intern(key string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[key]; ok {
		return id
	}
	return t.assignLocked(key)
}

func (t *IDTable) assignLocked(key string) int64 {
	id := int64(len(t.keys))
	t.ids[key] = id
	t.keys = append(t.keys, key)
	return id
}

func (t *IDTable) Resolve(key string) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[key]
	if !ok {
		return 0, &KeyError{Table: t.name, Key: key, Err: ErrUnresolvedReference}
	}
	return id, nil
}

func (t *IDTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.keys)
}

// Keys returns the assigned keys ordered by id.
func (t *IDTable) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Feed holds the id tables for a single load. Stops and trips must be
// assigned before any stop time referencing them is built, and services
// before trips.
type Feed struct {
	Stops          *IDTable
	Trips          *IDTable
	Services       *IDTable
	DirectedRoutes *IDTable
}

func NewFeed() *Feed {
	return &Feed{
		Stops:          NewIDTable("stops"),
		Trips:          NewIDTable("trips"),
		Services:       NewIDTable("services"),
		DirectedRoutes: NewIDTable("directed_routes"),
	}
}

func (f *Feed) tables() []*IDTable {
	return []*IDTable{f.Stops, f.Trips, f.Services, f.DirectedRoutes}
}
