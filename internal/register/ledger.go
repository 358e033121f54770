package register

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/jsonstore"
)

// ErrNoRecords is returned when deleting a date that has no entries.
var ErrNoRecords = errors.New("no attendance records")

// Ledger maps dates (YYYY-MM-DD) to the day's entries, backed by one JSON file.
// It is not safe for concurrent use; the attendance service owns it.
type Ledger struct {
	path string
	days map[string]Day
	now  func() time.Time
}

// Stats summarises the register for the dashboard.
type Stats struct {
	TotalStudents int    `json:"total_students"`
	PresentToday  int    `json:"present_today"`
	Rate          string `json:"attendance_rate"`
	RecordedDays  int    `json:"total_records"`
}

// Open loads the ledger, creating an empty one on first run.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		now:  time.Now,
	}
	_, err := jsonstore.LoadOrSeed(path, &l.days, func() {
		l.days = make(map[string]Day)
	})
	if err != nil {
		return nil, fmt.Errorf("load attendance register: %w", err)
	}
	if l.days == nil {
		l.days = make(map[string]Day)
	}
	for date, day := range l.days {
		if day == nil {
			l.days[date] = make(Day)
		}
	}
	return l, nil
}

// SetClock replaces the time source used for dates and times.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Today returns the current local date.
func (l *Ledger) Today() string {
	return l.now().Local().Format(constants.DateLayout)
}

// Clock returns the current local time of day.
func (l *Ledger) Clock() string {
	return l.now().Local().Format(constants.TimeLayout)
}

func (l *Ledger) save() error {
	if err := jsonstore.Save(l.path, l.days); err != nil {
		return fmt.Errorf("save attendance register: %w", err)
	}
	return nil
}

// snapshot returns a deep copy of the days, for rollback.
func (l *Ledger) snapshot() map[string]Day {
	c := make(map[string]Day, len(l.days))
	for date, day := range l.days {
		dc := make(Day, len(day))
		for id, e := range day {
			dc[id] = e
		}
		c[date] = dc
	}
	return c
}

func (l *Ledger) day(date string) Day {
	d, ok := l.days[date]
	if !ok {
		d = make(Day)
		l.days[date] = d
	}
	return d
}

// Set records a status. Marking absent clears the time; marking present
// without a time stamps the current one.
func (l *Ledger) Set(date, id string, present bool, at string) (Entry, error) {
	prev := l.snapshot()

	e := Entry{Present: present}
	if present {
		e.Time = at
		if e.Time == "" {
			e.Time = l.Clock()
		}
	}
	l.day(date)[id] = e

	if err := l.save(); err != nil {
		l.days = prev
		return Entry{}, err
	}
	return e, nil
}

// MarkIfAbsent marks each id present unless it already is and returns the
// ids that changed. The file is written once.
func (l *Ledger) MarkIfAbsent(date string, ids []string, at string) ([]string, error) {
	if at == "" {
		at = l.Clock()
	}
	prev := l.snapshot()
	d := l.day(date)

	var marked []string
	for _, id := range ids {
		if d[id].Present {
			continue
		}
		d[id] = Entry{Present: true, Time: at}
		marked = append(marked, id)
	}
	if len(marked) == 0 {
		l.days = prev
		return nil, nil
	}

	if err := l.save(); err != nil {
		l.days = prev
		return nil, err
	}
	return marked, nil
}

// Status returns the entry of id on date. Missing entries are absent.
func (l *Ledger) Status(date, id string) Entry {
	return l.days[date][id]
}

// Day returns a copy of the entries recorded on date.
func (l *Ledger) Day(date string) Day {
	src := l.days[date]
	d := make(Day, len(src))
	for id, e := range src {
		d[id] = e
	}
	return d
}

// HasDate reports whether anything was recorded on date.
func (l *Ledger) HasDate(date string) bool {
	_, ok := l.days[date]
	return ok
}

// PresentCount returns the number of students present on date.
func (l *Ledger) PresentCount(date string) int {
	return l.days[date].PresentCount()
}

// TotalPresent returns the number of present entries over all dates.
func (l *Ledger) TotalPresent() int {
	n := 0
	for _, d := range l.days {
		n += d.PresentCount()
	}
	return n
}

// Dates returns the recorded dates in ascending order.
func (l *Ledger) Dates() []string {
	dates := make([]string, 0, len(l.days))
	for date := range l.days {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// DeleteDay removes every entry of date and returns how many were present.
func (l *Ledger) DeleteDay(date string) (int, error) {
	d, ok := l.days[date]
	if !ok {
		return 0, fmt.Errorf("delete %s: %w", date, ErrNoRecords)
	}

	delete(l.days, date)
	if err := l.save(); err != nil {
		l.days[date] = d
		return 0, err
	}
	return d.PresentCount(), nil
}

// DeleteAll empties the ledger and returns how many present entries were removed.
func (l *Ledger) DeleteAll() (int, error) {
	n := l.TotalPresent()
	prev := l.days

	l.days = make(map[string]Day)
	if err := l.save(); err != nil {
		l.days = prev
		return 0, err
	}
	return n, nil
}

// Stats computes the dashboard numbers for date.
func (l *Ledger) Stats(date string, students int) Stats {
	present := l.PresentCount(date)
	rate := "0%"
	if students > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(present)/float64(students)*100)
	}
	return Stats{
		TotalStudents: students,
		PresentToday:  present,
		Rate:          rate,
		RecordedDays:  len(l.days),
	}
}
