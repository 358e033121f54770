package attendance

import (
	"context"
	"fmt"
	"io"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/fingerprint"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/report"
	"github.com/kozaktomas/attendance/internal/roster"
)

// AutoMarkResult lists the students marked by one automatic mark.
type AutoMarkResult struct {
	// Identified is the student recognised in the frame, empty when nobody was.
	Identified string   `json:"identified,omitempty"`
	Marked     []string `json:"marked"`
	Time       string   `json:"time,omitempty"`
}

// Today returns the current register date.
func (s *Service) Today(ctx context.Context) (string, error) {
	return call(ctx, s, func() (string, error) {
		return s.register.Today(), nil
	})
}

// SetStatus marks a student present or absent for today.
func (s *Service) SetStatus(ctx context.Context, id string, present bool) (report.Row, error) {
	return call(ctx, s, func() (report.Row, error) {
		st, ok := s.roster.Get(id)
		if !ok {
			return report.Row{}, fmt.Errorf("student %s: %w", id, roster.ErrStudentNotFound)
		}

		date := s.register.Today()
		e, err := s.register.Set(date, id, present, "")
		if err != nil {
			return report.Row{}, err
		}
		row := report.DayRows(date, []roster.Student{st}, register.Day{id: e})[0]

		s.mirrorEntry(date, id, e)
		s.notifier.Publish(Notification{StudentID: id, Name: st.Name, Status: row.Status, Time: row.Time})
		return row, nil
	})
}

// MarkAllPresent marks every student not yet present today and returns how
// many changed.
func (s *Service) MarkAllPresent(ctx context.Context) (int, error) {
	return call(ctx, s, func() (int, error) {
		date := s.register.Today()
		marked, at, err := s.markIfAbsent(date, s.roster.IDs())
		if err != nil {
			return 0, err
		}
		if len(marked) > 0 {
			s.notifier.Publish(Notification{StudentID: "All", Name: "Multiple Students", Status: constants.StatusPresent, Time: at})
		}
		return len(marked), nil
	})
}

// AutoMark handles a detected face. An identified student is marked present
// unless already present; when nobody was identified every student not yet
// present is marked.
func (s *Service) AutoMark(ctx context.Context, identified string) (AutoMarkResult, error) {
	return call(ctx, s, func() (AutoMarkResult, error) {
		res := AutoMarkResult{Identified: identified}
		date := s.register.Today()

		if identified != "" {
			st, ok := s.roster.Get(identified)
			if !ok {
				return res, fmt.Errorf("auto mark %s: %w", identified, roster.ErrStudentNotFound)
			}
			marked, at, err := s.markIfAbsent(date, []string{identified})
			if err != nil {
				return res, err
			}
			res.Marked, res.Time = marked, at
			if len(marked) > 0 {
				s.notifier.Publish(Notification{StudentID: st.ID, Name: st.Name, Status: constants.StatusPresent, Time: at})
			}
			return res, nil
		}

		marked, at, err := s.markIfAbsent(date, s.roster.IDs())
		if err != nil {
			return res, err
		}
		res.Marked, res.Time = marked, at
		if len(marked) > 0 {
			s.notifier.Publish(Notification{StudentID: "All", Name: "Multiple Students", Status: constants.StatusPresent, Time: at})
		}
		return res, nil
	})
}

// markIfAbsent stamps all ids with one time and mirrors the changes.
func (s *Service) markIfAbsent(date string, ids []string) ([]string, string, error) {
	at := s.register.Clock()
	marked, err := s.register.MarkIfAbsent(date, ids, at)
	if err != nil {
		return nil, "", err
	}
	for _, id := range marked {
		s.mirrorEntry(date, id, register.Entry{Present: true, Time: at})
	}
	if len(marked) == 0 {
		at = ""
	}
	return marked, at, nil
}

func (s *Service) mirrorEntry(date, id string, e register.Entry) {
	s.mirrorWrite("save entry", func(ctx context.Context, m database.Mirror) error {
		return m.SaveEntry(ctx, database.EntryRecord{Date: date, StudentID: id, Present: e.Present, Time: e.Time})
	})
}

// Day lists every student with their status on date. An empty date means today.
func (s *Service) Day(ctx context.Context, date string) ([]report.Row, error) {
	return call(ctx, s, func() ([]report.Row, error) {
		if date == "" {
			date = s.register.Today()
		}
		return report.DayRows(date, s.roster.List(), s.register.Day(date)), nil
	})
}

// Dates returns the recorded dates in ascending order.
func (s *Service) Dates(ctx context.Context) ([]string, error) {
	return call(ctx, s, func() ([]string, error) {
		return s.register.Dates(), nil
	})
}

// Stats returns the dashboard numbers for today.
func (s *Service) Stats(ctx context.Context) (register.Stats, error) {
	return call(ctx, s, func() (register.Stats, error) {
		return s.register.Stats(s.register.Today(), s.roster.Len()), nil
	})
}

// PresentCount returns how many present entries date holds, or all dates
// together when date is empty.
func (s *Service) PresentCount(ctx context.Context, date string) (int, error) {
	return call(ctx, s, func() (int, error) {
		if date == "" {
			return s.register.TotalPresent(), nil
		}
		return s.register.PresentCount(date), nil
	})
}

// DeleteDay removes the records of date and returns how many students were
// present on it. An unknown date is register.ErrNoRecords.
func (s *Service) DeleteDay(ctx context.Context, date string) (int, error) {
	return call(ctx, s, func() (int, error) {
		return s.deleteDay(date)
	})
}

// DeleteToday removes today's records. A day without a present student is
// register.ErrNoRecords.
func (s *Service) DeleteToday(ctx context.Context) (int, error) {
	return call(ctx, s, func() (int, error) {
		today := s.register.Today()
		if s.register.PresentCount(today) == 0 {
			return 0, fmt.Errorf("delete %s: %w", today, register.ErrNoRecords)
		}
		return s.deleteDay(today)
	})
}

func (s *Service) deleteDay(date string) (int, error) {
	n, err := s.register.DeleteDay(date)
	if err != nil {
		return 0, err
	}
	s.mirrorWrite("delete day", func(ctx context.Context, m database.Mirror) error {
		return m.DeleteDay(ctx, date)
	})
	return n, nil
}

// DeleteAll empties the register and returns how many present entries were removed.
func (s *Service) DeleteAll(ctx context.Context) (int, error) {
	return call(ctx, s, func() (int, error) {
		if s.register.TotalPresent() == 0 {
			return 0, register.ErrNoRecords
		}
		n, err := s.register.DeleteAll()
		if err != nil {
			return 0, err
		}
		s.mirrorWrite("delete all", func(ctx context.Context, m database.Mirror) error {
			return m.DeleteAll(ctx)
		})
		return n, nil
	})
}

// WriteDailyReport writes the CSV report of date, today when empty.
func (s *Service) WriteDailyReport(ctx context.Context, date string, w io.Writer) error {
	rows, err := s.Day(ctx, date)
	if err != nil {
		return err
	}
	return report.WriteDaily(w, rows)
}

// WriteExport writes every recorded date for every current student.
func (s *Service) WriteExport(ctx context.Context, w io.Writer) error {
	rows, err := call(ctx, s, func() ([]report.Row, error) {
		students := s.roster.List()
		var rows []report.Row
		for _, date := range s.register.Dates() {
			rows = append(rows, report.DayRows(date, students, s.register.Day(date))...)
		}
		return rows, nil
	})
	if err != nil {
		return err
	}
	return report.WriteExport(w, rows)
}

// Sync pushes the roster, the register and the templates to the database and
// returns the number of students and entries written.
func (s *Service) Sync(ctx context.Context) (students, entries int, err error) {
	type counts struct{ students, entries int }
	c, err := call(ctx, s, func() (counts, error) {
		var c counts
		if s.mirror == nil {
			return c, database.ErrNotInitialized
		}
		for _, st := range s.roster.List() {
			if err := s.mirror.SaveStudent(ctx, studentRecord(st)); err != nil {
				return c, err
			}
			c.students++
		}
		for _, date := range s.register.Dates() {
			for id, e := range s.register.Day(date) {
				rec := database.EntryRecord{Date: date, StudentID: id, Present: e.Present, Time: e.Time}
				if err := s.mirror.SaveEntry(ctx, rec); err != nil {
					return c, err
				}
				c.entries++
			}
		}
		if s.templates == nil || s.gallery == nil {
			return c, nil
		}
		for _, id := range s.roster.IDs() {
			t, ok := s.gallery.Template(id)
			if !ok {
				continue
			}
			err := s.templates.SaveTemplate(ctx, database.StoredTemplate{
				StudentID: id,
				Size:      t.Size,
				Vector:    t.Vector,
				DHash:     hashOf(s.hashes, id),
			})
			if err != nil {
				return c, err
			}
		}
		return c, nil
	})
	return c.students, c.entries, err
}

func hashOf(hashes map[string]uint64, id string) string {
	h, ok := hashes[id]
	if !ok {
		return ""
	}
	return fingerprint.FormatHash(h)
}
