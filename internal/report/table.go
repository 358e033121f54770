package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/tally"
)

const ruleWidth = 60

// PrintTally prints the counter table of the console front end.
func PrintTally(w io.Writer, entries []tally.Entry) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "           SMART ATTENDANCE SYSTEM")
	fmt.Fprintln(w, rule)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tAttendance\tLast Marked")
	fmt.Fprintln(tw, "--\t----\t----------\t-----------")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ID, e.Name, e.TotalAttendance, e.LastOrNever())
	}
	tw.Flush()

	fmt.Fprintln(w, rule)
}

// PrintDay prints one day of the register.
func PrintDay(w io.Writer, date string, rows []Row) {
	fmt.Fprintf(w, "Attendance for %s\n\n", date)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tStatus\tTime")
	fmt.Fprintln(tw, "--\t----\t------\t----")
	present := 0
	for _, r := range rows {
		if r.Present() {
			present++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.StudentID, r.Name, r.Status, r.Time)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nPresent: %d/%d\n", present, len(rows))
}

// PrintStats prints the dashboard numbers.
func PrintStats(w io.Writer, s register.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Students:\t%d\n", s.TotalStudents)
	fmt.Fprintf(tw, "Today's Attendance:\t%d\n", s.PresentToday)
	fmt.Fprintf(tw, "Attendance Rate:\t%s\n", s.Rate)
	fmt.Fprintf(tw, "Total Records:\t%d\n", s.RecordedDays)
	tw.Flush()
}
