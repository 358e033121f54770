package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage the student roster",
	Long:  "Add, list, inspect and remove students and enrol their reference photos.",
}

var studentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a student",
	Long: `Add a student to the roster. ID, name and email are required.

Examples:
  attendance student add --id 6 --name "Ada Lovelace" --email ada@example.com

  # Add with a reference photo
  attendance student add --id 7 --name "Grace Hopper" --email grace@example.com --face grace.jpg`,
	Args: cobra.NoArgs,
	RunE: runStudentAdd,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List students",
	Long: `List the students of the roster.

Examples:
  attendance student list
  attendance student list --search ada
  attendance student list --json`,
	Args: cobra.NoArgs,
	RunE: runStudentList,
}

var studentInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show the details of a student",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentInfo,
}

var studentRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a student and their reference photo",
	Long: `Remove a student and their reference photo. Register entries of the
student are kept.

Examples:
  attendance student remove 6
  attendance student remove 6 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runStudentRemove,
}

var studentEnrollCmd = &cobra.Command{
	Use:   "enroll <id> <image>",
	Short: "Store a reference photo for a student",
	Args:  cobra.ExactArgs(2),
	RunE:  runStudentEnroll,
}

var studentImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Enrol the reference photos of a directory",
	Long: `Enrol every <id>.<ext> image of a directory as the reference photo of
the student with that ID. Files of unknown students are skipped.

Examples:
  attendance student import ./photos

  # JSON output for scripting
  attendance student import ./photos --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStudentImport,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentAddCmd, studentListCmd, studentInfoCmd, studentRemoveCmd, studentEnrollCmd, studentImportCmd)

	studentAddCmd.Flags().String("id", "", "Student ID (positive number)")
	studentAddCmd.Flags().String("name", "", "Full name")
	studentAddCmd.Flags().String("email", "", "Email address")
	studentAddCmd.Flags().String("phone", "", "Phone number")
	studentAddCmd.Flags().String("course", "", "Course")
	studentAddCmd.Flags().String("year", "", "Year of study")
	studentAddCmd.Flags().String("face", "", "Reference photo file")

	studentListCmd.Flags().String("search", "", "Only list names containing this text")
	studentListCmd.Flags().Bool("json", false, "Output as JSON")

	studentRemoveCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	studentImportCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

func printEnrollment(res attendance.Enrollment) {
	if res.Student.HasFace() {
		fmt.Printf("Reference photo saved to %s\n", res.Student.FaceImage)
		if !res.Enrolled {
			fmt.Println("Warning: the photo has no contrast and cannot be used for identification")
		}
	}
	if len(res.Duplicates) > 0 {
		fmt.Printf("Warning: photo looks like the reference photo of student(s) %s\n", strings.Join(res.Duplicates, ", "))
	}
}

func runStudentAdd(cmd *cobra.Command, args []string) error {
	st := roster.Student{
		ID:     mustGetString(cmd, "id"),
		Name:   mustGetString(cmd, "name"),
		Email:  mustGetString(cmd, "email"),
		Phone:  mustGetString(cmd, "phone"),
		Course: mustGetString(cmd, "course"),
		Year:   mustGetString(cmd, "year"),
	}

	var face []byte
	if path := mustGetString(cmd, "face"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading face image: %w", err)
		}
		face = data
	}

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.AddStudent(context.Background(), st, face)
	if err != nil {
		return err
	}

	fmt.Printf("Student %s (ID: %s) added\n", res.Student.Name, res.Student.ID)
	printEnrollment(res)
	return nil
}

func runStudentList(cmd *cobra.Command, args []string) error {
	search := mustGetString(cmd, "search")
	jsonOutput := mustGetBool(cmd, "json")

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	var students []roster.Student
	if search != "" {
		students, err = a.svc.FindStudents(ctx, search)
	} else {
		students, err = a.svc.Students(ctx)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		type studentJSON struct {
			ID string `json:"id"`
			roster.Student
		}
		out := make([]studentJSON, len(students))
		for i, st := range students {
			out[i] = studentJSON{ID: st.ID, Student: st}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(students) == 0 {
		fmt.Println("No students found")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tEmail\tCourse\tYear\tFace")
	for _, st := range students {
		face := "No"
		if st.HasFace() {
			face = "Yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", st.ID, st.Name, st.Email, st.Course, st.Year, face)
	}
	tw.Flush()
	fmt.Printf("\nTotal: %d students\n", len(students))
	return nil
}

func runStudentInfo(cmd *cobra.Command, args []string) error {
	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.svc.Student(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(st.Details())
	return nil
}

func runStudentRemove(cmd *cobra.Command, args []string) error {
	skipConfirm := mustGetBool(cmd, "yes")

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	st, err := a.svc.Student(ctx, args[0])
	if err != nil {
		return err
	}

	if !skipConfirm && !confirmAction(fmt.Sprintf("Remove %s (ID: %s)? [y/N]: ", st.Name, st.ID)) {
		fmt.Println("Aborted")
		return nil
	}

	if _, err := a.svc.RemoveStudent(ctx, st.ID); err != nil {
		return err
	}
	fmt.Printf("Student %s (ID: %s) removed\n", st.Name, st.ID)
	return nil
}

func runStudentEnroll(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading face image: %w", err)
	}

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.EnrollFace(context.Background(), args[0], data)
	if err != nil {
		return err
	}
	printEnrollment(res)
	return nil
}

// ImportResult summarises a photo import.
type ImportResult struct {
	Enrolled   []string `json:"enrolled"`
	Unmatched  []string `json:"unmatched,omitempty"`
	Skipped    []string `json:"skipped,omitempty"`
	Failed     []string `json:"failed,omitempty"`
	Duplicates int      `json:"duplicates"`
}

// importCandidates returns the image files of dir.
func importCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func runStudentImport(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	files, err := importCandidates(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling photos"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	ctx := context.Background()
	result := ImportResult{Enrolled: []string{}}
	for _, path := range files {
		name := filepath.Base(path)
		id := strings.TrimSuffix(name, filepath.Ext(name))

		res, err := importPhoto(ctx, a.svc, id, path)
		switch {
		case errors.Is(err, roster.ErrStudentNotFound):
			result.Unmatched = append(result.Unmatched, name)
		case err != nil:
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %v", name, err))
		case !res.Enrolled:
			result.Skipped = append(result.Skipped, name)
		default:
			result.Enrolled = append(result.Enrolled, id)
		}
		if err == nil && len(res.Duplicates) > 0 {
			result.Duplicates++
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Println()
	fmt.Printf("Import complete!\n")
	fmt.Printf("  Enrolled:   %d\n", len(result.Enrolled))
	fmt.Printf("  Unmatched:  %d\n", len(result.Unmatched))
	fmt.Printf("  No contrast: %d\n", len(result.Skipped))
	fmt.Printf("  Duplicates: %d\n", result.Duplicates)
	for _, f := range result.Failed {
		fmt.Printf("  Failed: %s\n", f)
	}
	return nil
}

func importPhoto(ctx context.Context, svc *attendance.Service, id, path string) (attendance.Enrollment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return attendance.Enrollment{}, err
	}
	return svc.EnrollFace(ctx, id, data)
}
