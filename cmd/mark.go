package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/attendance/internal/report"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/spf13/cobra"
)

var markCmd = &cobra.Command{
	Use:   "mark <id>",
	Short: "Mark attendance for one tally ID",
	Long: `Increment the attendance counter of a tally ID and stamp the time.

Examples:
  attendance mark 3`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the attendance counters",
	Long: `Print the attendance counter of every tally ID.

Examples:
  attendance show

  # JSON output for scripting
  attendance show --json`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("json", false, "Output as JSON")
}

func runMark(cmd *cobra.Command, args []string) error {
	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.svc.MarkTally(context.Background(), args[0])
	if errors.Is(err, tally.ErrUnknownID) {
		return fmt.Errorf("student ID %s not found", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Printf("Attendance marked for %s (ID: %s)\n", entry.Name, entry.ID)
	fmt.Printf("   Total attendance: %d\n", entry.TotalAttendance)
	fmt.Printf("   Time: %s\n", entry.LastAttendance)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.svc.TallyRecords(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	report.PrintTally(os.Stdout, entries)
	return nil
}
