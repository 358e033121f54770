package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/poller"
	"github.com/kozaktomas/attendance/internal/report"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/kozaktomas/attendance/internal/vision"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the interactive attendance console",
	Long: `Run the interactive attendance console.

The console prints the attendance table and reads one command per line:
a student ID marks attendance, "s" shows the table again and "q" quits.
A background poller watches the camera and reports detected faces.

Examples:
  # Start the console with face detection
  attendance console

  # Start without touching the camera
  attendance console --no-camera`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().Bool("no-camera", false, "Disable background face detection")
	consoleCmd.Flags().Duration("interval", 0, "Face detection interval (defaults to CONSOLE_POLL_INTERVAL)")
}

// tallyKeeper is the part of the attendance service the console needs.
type tallyKeeper interface {
	MarkTally(ctx context.Context, id string) (tally.Entry, error)
	TallyRecords(ctx context.Context) ([]tally.Entry, error)
}

// syncWriter serialises writes from the command loop and the poller.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func runConsole(cmd *cobra.Command, args []string) error {
	noCamera := mustGetBool(cmd, "no-camera")
	interval := mustGetDuration(cmd, "interval")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = cfg.Recognition.ConsoleInterval
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := &syncWriter{w: os.Stdout}
	fmt.Fprintln(out, "Smart Attendance System Starting...")

	detectCtx, cancelDetect := context.WithCancel(ctx)
	detectDone := make(chan struct{})
	if noCamera {
		close(detectDone)
	} else {
		fmt.Fprintln(out, "Initializing face detection...")
		detectDone = startDetection(detectCtx, cfg, interval, out)
	}

	err = runConsoleLoop(ctx, a.svc, os.Stdin, out)

	cancelDetect()
	<-detectDone

	fmt.Fprintln(out, "Attendance System Closed!")
	fmt.Fprintf(out, "Final attendance data saved to %s\n", cfg.Storage.TallyPath())
	return err
}

// startDetection runs a detection-only poller that prints every sighting.
// A camera that cannot be opened disables detection with a warning.
func startDetection(ctx context.Context, cfg *config.Config, interval time.Duration, out io.Writer) chan struct{} {
	done := make(chan struct{})

	source, err := vision.OpenSource(cfg.Camera)
	if err != nil {
		fmt.Fprintln(out, "Warning: Could not open webcam. Face detection disabled.")
		close(done)
		return done
	}
	detector, err := vision.OpenDetector(cfg.Detector)
	if err != nil {
		source.Close()
		fmt.Fprintf(out, "Warning: %v. Face detection disabled.\n", err)
		close(done)
		return done
	}

	p := poller.New(poller.Config{
		Source:   source,
		Detector: detector,
		Interval: interval,
		OnStatus: detectionPrinter(out),
	})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			fmt.Fprintf(out, "Face detection error: %v\n", err)
		}
	}()
	return done
}

// detectionPrinter prints detected faces and detector errors. Repeated
// errors are printed once.
func detectionPrinter(out io.Writer) func(poller.Status) {
	var lastErr string
	return func(st poller.Status) {
		switch {
		case st.Faces > 0:
			lastErr = ""
			fmt.Fprintf(out, "\n[FACE DETECTED] %d face(s) found in camera!\n", st.Faces)
		case st.Failure != nil && st.Failure.Stage == poller.StageDetect:
			if msg := st.Failure.Error(); msg != lastErr {
				lastErr = msg
				fmt.Fprintf(out, "Face detection error: %v\n", st.Failure.Err)
			}
		}
	}
}

func printConsoleTable(ctx context.Context, svc tallyKeeper, out io.Writer) error {
	entries, err := svc.TallyRecords(ctx)
	if err != nil {
		return err
	}
	report.PrintTally(out, entries)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  1-5: Mark attendance for student ID 1-5")
	fmt.Fprintln(out, "  s: Show attendance status")
	fmt.Fprintln(out, "  q: Quit")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	return nil
}

// runConsoleLoop reads commands from in until "q", end of input or ctx is
// cancelled.
func runConsoleLoop(ctx context.Context, svc tallyKeeper, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := printConsoleTable(ctx, svc, out); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}

	for {
		fmt.Fprint(out, "\nEnter command (1-5, s, q): ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nShutting down attendance system...")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nShutting down attendance system...")
				return nil
			}
			line = l
		}

		command := strings.ToLower(strings.TrimSpace(line))
		switch command {
		case "q":
			fmt.Fprintln(out, "Shutting down attendance system...")
			return nil
		case "s":
			if err := printConsoleTable(ctx, svc, out); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		default:
			consoleMark(ctx, svc, command, out)
		}
	}
}

func consoleMark(ctx context.Context, svc tallyKeeper, id string, out io.Writer) {
	if id == "" {
		fmt.Fprintln(out, "Invalid command. Use 1-5, s, or q")
		return
	}

	entry, err := svc.MarkTally(ctx, id)
	switch {
	case errors.Is(err, tally.ErrUnknownID) && isDigits(id):
		fmt.Fprintf(out, "Student ID %s not found!\n", id)
	case errors.Is(err, tally.ErrUnknownID):
		fmt.Fprintln(out, "Invalid command. Use 1-5, s, or q")
	case err != nil:
		fmt.Fprintf(out, "Error: %v\n", err)
	default:
		fmt.Fprintf(out, "\nAttendance marked for %s (ID: %s)\n", entry.Name, entry.ID)
		fmt.Fprintf(out, "   Total attendance: %d\n", entry.TotalAttendance)
		fmt.Fprintf(out, "   Time: %s\n", entry.LastAttendance)
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
