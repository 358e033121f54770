package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/fingerprint"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify the student in a photo",
	Long: `Match a photo against the enrolled reference photos.

With --db the templates stored in PostgreSQL are searched instead of the
in-memory gallery (requires DATABASE_URL).

Examples:
  attendance identify frame.jpg
  attendance identify frame.jpg --mark
  attendance identify frame.jpg --db --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Bool("db", false, "Search the templates stored in PostgreSQL")
	identifyCmd.Flags().Bool("mark", false, "Mark the identified student present")
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// IdentifyResult is the JSON output of the identify command.
type IdentifyResult struct {
	Identified bool    `json:"identified"`
	StudentID  string  `json:"student_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Score      float64 `json:"score"`
	Marked     bool    `json:"marked"`
}

func runIdentify(cmd *cobra.Command, args []string) error {
	useDB := mustGetBool(cmd, "db")
	mark := mustGetBool(cmd, "mark")
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	img, err := fingerprint.Decode(data)
	if err != nil {
		return err
	}

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	var (
		who attendance.Identification
		ok  bool
	)
	if useDB {
		if err := a.requireDatabase(); err != nil {
			return err
		}
		who, ok, err = a.svc.IdentifyStored(ctx, img, nil)
	} else {
		who, ok, err = a.svc.Identify(ctx, img, nil)
	}
	if err != nil {
		return err
	}

	result := IdentifyResult{Identified: ok, StudentID: who.StudentID, Name: who.Name, Score: who.Score}
	if ok && mark {
		row, err := a.svc.SetStatus(ctx, who.StudentID, true)
		if err != nil {
			return err
		}
		result.Marked = row.Present()
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !ok {
		fmt.Printf("No student recognised (best score %.3f)\n", result.Score)
		return nil
	}
	fmt.Printf("Identified %s (ID: %s), score %.3f\n", result.Name, result.StudentID, result.Score)
	if result.Marked {
		fmt.Println("Marked present")
	}
	return nil
}
