package tally

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/jsonstore"
)

// ErrUnknownID is returned when marking an id that is not in the store.
var ErrUnknownID = errors.New("unknown id")

// Entry is a record together with its id, for ordered listings.
type Entry struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	TotalAttendance int    `json:"total_attendance"`
	LastAttendance  string `json:"last_attendance"`
}

func newEntry(id string, r Record) Entry {
	return Entry{ID: id, Name: r.Name, TotalAttendance: r.TotalAttendance, LastAttendance: r.LastAttendance}
}

// LastOrNever returns the last-marked timestamp or "Never".
func (e Entry) LastOrNever() string {
	if e.LastAttendance == "" {
		return "Never"
	}
	return e.LastAttendance
}

// Store maps stringified person ids to attendance records, backed by one JSON file.
// It is not safe for concurrent use; the attendance service owns it.
type Store struct {
	path    string
	records map[string]*Record
	now     func() time.Time
}

// Open loads the store from path. A missing or unreadable file is replaced by
// the seed (id -> name, zero counters) and persisted right away.
func Open(path string, seed map[string]string) (*Store, error) {
	s := &Store{
		path: path,
		now:  time.Now,
	}
	_, err := jsonstore.LoadOrSeed(path, &s.records, func() {
		s.records = make(map[string]*Record, len(seed))
		for id, name := range seed {
			s.records[id] = &Record{Name: name}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("load attendance records: %w", err)
	}
	if s.records == nil {
		s.records = make(map[string]*Record)
	}
	for id, rec := range s.records {
		if rec == nil {
			s.records[id] = &Record{}
		}
	}
	return s, nil
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Save rewrites the backing file with the whole mapping.
func (s *Store) Save() error {
	if err := jsonstore.Save(s.path, s.records); err != nil {
		return fmt.Errorf("save attendance records: %w", err)
	}
	return nil
}

// Mark increments the counter of id, stamps the current local time and saves.
// Unknown ids leave the store untouched and return ErrUnknownID.
func (s *Store) Mark(id string) (Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("mark %q: %w", id, ErrUnknownID)
	}

	prev := *rec
	rec.TotalAttendance++
	rec.LastAttendance = s.now().Local().Format(constants.TimestampLayout)

	if err := s.Save(); err != nil {
		*rec = prev
		return Record{}, err
	}
	return *rec, nil
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (Record, bool) {
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of known ids.
func (s *Store) Len() int {
	return len(s.records)
}

// IDs returns all known ids in numeric order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// Entries returns copies of all records in id order.
func (s *Store) Entries() []Entry {
	ids := s.IDs()
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = newEntry(id, *s.records[id])
	}
	return entries
}

// SortIDs orders ids numerically, falling back to string order for
// ids that are not integers.
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}
