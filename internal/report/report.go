// Package report renders the attendance data as CSV files and console tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/roster"
)

var (
	dailyHeader  = []string{"Student ID", "Name", "Status", "Time"}
	exportHeader = []string{"Date", "Student ID", "Name", "Status", "Time"}
)

// Row is the status of one student on one day.
type Row struct {
	Date      string `json:"date,omitempty"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Time      string `json:"time"`
}

// Present reports whether the row is a present mark.
func (r Row) Present() bool {
	return r.Status == constants.StatusPresent
}

// DailyFilename is the default name of the daily report file.
func DailyFilename(date string) string {
	return fmt.Sprintf("daily_report_%s.csv", date)
}

// DayRows lists every student with their status on date, in roster order.
// Students without an entry are absent.
func DayRows(date string, students []roster.Student, day register.Day) []Row {
	rows := make([]Row, len(students))
	for i, st := range students {
		e := day[st.ID]
		status := constants.StatusAbsent
		if e.Present {
			status = constants.StatusPresent
		}
		rows[i] = Row{
			Date:      date,
			StudentID: st.ID,
			Name:      st.Name,
			Status:    status,
			Time:      e.Time,
		}
	}
	return rows
}

// WriteDaily writes a single-day report: Student ID, Name, Status, Time.
func WriteDaily(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(dailyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.StudentID, r.Name, r.Status, r.Time}); err != nil {
			return fmt.Errorf("write row %s: %w", r.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExport writes the full history: Date, Student ID, Name, Status, Time.
func WriteExport(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Date, r.StudentID, r.Name, r.Status, r.Time}); err != nil {
			return fmt.Errorf("write row %s/%s: %w", r.Date, r.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
