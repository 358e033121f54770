// Package register keeps the daily present/absent ledger of the student roster.
package register

import (
	"encoding/json"
	"fmt"
	"strings"
)

const timeSuffix = "_time"

// Entry is the status of one student on one day.
type Entry struct {
	Present bool   `json:"present"`
	Time    string `json:"time"` // HH:MM:SS of the last present mark, empty when absent
}

// Day maps student IDs to their entry for one date.
//
// On disk a day is a flat object: "<id>": true|false plus "<id>_time": "HH:MM:SS".
type Day map[string]Entry

// PresentCount returns the number of students marked present.
func (d Day) PresentCount() int {
	n := 0
	for _, e := range d {
		if e.Present {
			n++
		}
	}
	return n
}

// MarshalJSON writes the flat on-disk shape.
func (d Day) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(d)*2)
	for id, e := range d {
		flat[id] = e.Present
		flat[id+timeSuffix] = e.Time
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat on-disk shape. Time keys without a status key
// are kept as absent entries so no data is dropped on the next save.
func (d *Day) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	day := make(Day, len(flat)/2)
	for key, raw := range flat {
		if id, ok := strings.CutSuffix(key, timeSuffix); ok && id != "" {
			var t string
			if err := json.Unmarshal(raw, &t); err != nil {
				return fmt.Errorf("time of %s: %w", id, err)
			}
			e := day[id]
			e.Time = t
			day[id] = e
			continue
		}
		var present bool
		if err := json.Unmarshal(raw, &present); err != nil {
			return fmt.Errorf("status of %s: %w", key, err)
		}
		e := day[key]
		e.Present = present
		day[key] = e
	}
	*d = day
	return nil
}
