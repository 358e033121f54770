// Package tally keeps the per-person attendance counters of the simple
// attendance tool: a fixed set of people, a counter and a last-marked timestamp.
package tally

import (
	"encoding/json"
	"fmt"
)

// Record is one person's attendance entry.
type Record struct {
	Name            string `json:"name"`
	TotalAttendance int    `json:"total_attendance"`
	LastAttendance  string `json:"last_attendance"` // empty until first marked
}

// LastOrNever returns the last-marked timestamp or "Never".
func (r Record) LastOrNever() string {
	if r.LastAttendance == "" {
		return "Never"
	}
	return r.LastAttendance
}

// UnmarshalJSON accepts both the canonical keys and the compact
// "attendance"/"last" keys written by the small GUI variant.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            string  `json:"name"`
		TotalAttendance *int    `json:"total_attendance"`
		LastAttendance  *string `json:"last_attendance"`
		Attendance      *int    `json:"attendance"`
		Last            *string `json:"last"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	r.Name = raw.Name
	switch {
	case raw.TotalAttendance != nil:
		r.TotalAttendance = *raw.TotalAttendance
	case raw.Attendance != nil:
		r.TotalAttendance = *raw.Attendance
	default:
		r.TotalAttendance = 0
	}
	switch {
	case raw.LastAttendance != nil:
		r.LastAttendance = *raw.LastAttendance
	case raw.Last != nil:
		r.LastAttendance = *raw.Last
	default:
		r.LastAttendance = ""
	}

	if r.TotalAttendance < 0 {
		return fmt.Errorf("decode record %q: negative attendance %d", r.Name, r.TotalAttendance)
	}
	return nil
}
