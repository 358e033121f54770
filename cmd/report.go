package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/attendance/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write attendance reports",
}

var reportDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Write the CSV report of one day",
	Long: `Write the attendance of every student on one day as CSV
(Student ID, Name, Status, Time).

Examples:
  # daily_report_<today>.csv in the current directory
  attendance report daily

  attendance report daily --date 2026-10-01 --out october-first.csv

  # Print to stdout
  attendance report daily --out -`,
	Args: cobra.NoArgs,
	RunE: runReportDaily,
}

var reportExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export every recorded day as CSV",
	Long: `Export the whole register as CSV (Date, Student ID, Name, Status, Time),
one row per current student and recorded date.

Examples:
  attendance report export attendance_export.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runReportExport,
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the dashboard numbers",
	Args:  cobra.NoArgs,
	RunE:  runReportStats,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportDailyCmd, reportExportCmd, reportStatsCmd)

	reportDailyCmd.Flags().String("date", "", "Report date (YYYY-MM-DD, defaults to today)")
	reportDailyCmd.Flags().String("out", "", "Output file, - for stdout (defaults to daily_report_<date>.csv)")

	reportStatsCmd.Flags().Bool("json", false, "Output as JSON")
}

// writeReportFile creates path and runs write on it. "-" writes to stdout.
func writeReportFile(path string, write func(f *os.File) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runReportDaily(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	out := mustGetString(cmd, "out")
	if date != "" {
		if err := validateDate(date); err != nil {
			return err
		}
	}

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if date == "" {
		if date, err = a.svc.Today(ctx); err != nil {
			return err
		}
	}
	if out == "" {
		out = report.DailyFilename(date)
	}

	err = writeReportFile(out, func(f *os.File) error {
		return a.svc.WriteDailyReport(ctx, date, f)
	})
	if err != nil {
		return err
	}
	if out != "-" {
		fmt.Printf("Daily report saved as %s\n", out)
	}
	return nil
}

func runReportExport(cmd *cobra.Command, args []string) error {
	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	err = writeReportFile(args[0], func(f *os.File) error {
		return a.svc.WriteExport(context.Background(), f)
	})
	if err != nil {
		return err
	}
	if args[0] != "-" {
		fmt.Printf("Data exported to %s\n", args[0])
	}
	return nil
}

func runReportStats(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.svc.Stats(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	report.PrintStats(os.Stdout, stats)
	return nil
}
