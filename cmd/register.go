package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/report"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Manage the daily attendance register",
	Long:  "Mark students present or absent for today, list a day and delete records.",
}

var registerPresentCmd = &cobra.Command{
	Use:   "present <id>",
	Short: "Mark a student present today",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegisterStatus(true),
}

var registerAbsentCmd = &cobra.Command{
	Use:   "absent <id>",
	Short: "Mark a student absent today",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegisterStatus(false),
}

var registerAllPresentCmd = &cobra.Command{
	Use:   "all-present",
	Short: "Mark every student not yet present as present",
	Args:  cobra.NoArgs,
	RunE:  runRegisterAllPresent,
}

var registerTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the attendance of a day",
	Long: `Show every student with their status on a day.

Examples:
  attendance register today
  attendance register today --date 2026-10-01`,
	Args: cobra.NoArgs,
	RunE: runRegisterToday,
}

var registerDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete attendance records",
	Long: `Delete the records of today, of one date or of every date.

Examples:
  attendance register delete --today
  attendance register delete --date 2026-10-01
  attendance register delete --all --yes`,
	Args: cobra.NoArgs,
	RunE: runRegisterDelete,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.AddCommand(registerPresentCmd, registerAbsentCmd, registerAllPresentCmd, registerTodayCmd, registerDeleteCmd)

	registerTodayCmd.Flags().String("date", "", "Date to show (YYYY-MM-DD, defaults to today)")

	registerDeleteCmd.Flags().Bool("today", false, "Delete today's records")
	registerDeleteCmd.Flags().Bool("all", false, "Delete every record")
	registerDeleteCmd.Flags().String("date", "", "Delete the records of this date (YYYY-MM-DD)")
	registerDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
	registerDeleteCmd.MarkFlagsMutuallyExclusive("today", "all", "date")
	registerDeleteCmd.MarkFlagsOneRequired("today", "all", "date")
}

func validateDate(date string) error {
	if _, err := time.Parse(constants.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}

func runRegisterStatus(present bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := startApp()
		if err != nil {
			return err
		}
		defer a.Close()

		row, err := a.svc.SetStatus(context.Background(), args[0], present)
		if err != nil {
			return err
		}
		if row.Present() {
			fmt.Printf("%s (ID: %s) marked present at %s\n", row.Name, row.StudentID, row.Time)
		} else {
			fmt.Printf("%s (ID: %s) marked absent\n", row.Name, row.StudentID)
		}
		return nil
	}
}

func runRegisterAllPresent(cmd *cobra.Command, args []string) error {
	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.svc.MarkAllPresent(context.Background())
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("All students are already marked as present!")
		return nil
	}
	fmt.Printf("Marked %d students as present!\n", n)
	return nil
}

func runRegisterToday(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
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
	rows, err := a.svc.Day(ctx, date)
	if err != nil {
		return err
	}
	report.PrintDay(os.Stdout, date, rows)
	return nil
}

func runRegisterDelete(cmd *cobra.Command, args []string) error {
	today := mustGetBool(cmd, "today")
	all := mustGetBool(cmd, "all")
	date := mustGetString(cmd, "date")
	skipConfirm := mustGetBool(cmd, "yes")

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
	switch {
	case all:
		return deleteAllRecords(ctx, a, skipConfirm)
	case today:
		if date, err = a.svc.Today(ctx); err != nil {
			return err
		}
		return deleteDayRecords(ctx, a, date, true, skipConfirm)
	default:
		return deleteDayRecords(ctx, a, date, false, skipConfirm)
	}
}

func deleteAllRecords(ctx context.Context, a *app, skipConfirm bool) error {
	total, err := a.svc.PresentCount(ctx, "")
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Println("No attendance records found!")
		return nil
	}
	dates, err := a.svc.Dates(ctx)
	if err != nil {
		return err
	}

	if !skipConfirm {
		fmt.Println("Are you sure you want to delete ALL attendance records?")
		fmt.Printf("\nTotal Records: %d\n", total)
		fmt.Printf("All Dates: %d days\n\n", len(dates))
		if !confirmAction("This action cannot be undone! Continue? [y/N]: ") {
			fmt.Println("Aborted")
			return nil
		}
	}

	n, err := a.svc.DeleteAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted all %d attendance records!\n", n)
	return nil
}

func deleteDayRecords(ctx context.Context, a *app, date string, isToday, skipConfirm bool) error {
	count, err := a.svc.PresentCount(ctx, date)
	if err != nil {
		return err
	}
	if isToday && count == 0 {
		fmt.Println("No attendance records found for today!")
		return nil
	}
	if !isToday {
		dates, err := a.svc.Dates(ctx)
		if err != nil {
			return err
		}
		if !slices.Contains(dates, date) {
			return fmt.Errorf("no attendance records found for %s", date)
		}
	}

	if !skipConfirm {
		if isToday {
			fmt.Println("Are you sure you want to delete today's attendance?")
		} else {
			fmt.Printf("Delete attendance for %s?\n", date)
		}
		fmt.Printf("\nDate: %s\n", date)
		fmt.Printf("Records: %d\n\n", count)
		if !confirmAction("This action cannot be undone! Continue? [y/N]: ") {
			fmt.Println("Aborted")
			return nil
		}
	}

	n, err := a.svc.DeleteDay(ctx, date)
	if errors.Is(err, register.ErrNoRecords) {
		return fmt.Errorf("no attendance records found for %s", date)
	}
	if err != nil {
		return err
	}
	if isToday {
		fmt.Printf("Deleted %d attendance records for today!\n", n)
	} else {
		fmt.Printf("Deleted %d records for %s!\n", n, date)
	}
	return nil
}
