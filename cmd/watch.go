package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/poller"
	"github.com/kozaktomas/attendance/internal/vision"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mark attendance from the camera",
	Long: `Watch the camera and mark attendance automatically.

When a face is detected it is matched against the enrolled reference photos.
An identified student is marked present; when nobody is identified every
student not yet present is marked. Two automatic marks are at least the
cooldown apart. Press Ctrl+C to stop.

Examples:
  attendance watch

  # Snapshot file refreshed by an external capture tool
  CAMERA_SNAPSHOT_FILE=/tmp/frame.jpg attendance watch

  # Stricter matching and a longer cooldown
  attendance watch --threshold 0.75 --cooldown 10s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 0, "Poll interval (defaults to POLL_INTERVAL)")
	watchCmd.Flags().Duration("cooldown", 0, "Minimum time between automatic marks (defaults to MARK_COOLDOWN)")
	watchCmd.Flags().Float64("threshold", 0, "Minimum match score (defaults to MATCH_THRESHOLD)")
	watchCmd.Flags().Bool("no-identify", false, "Mark every absent student instead of identifying faces")
}

// cameraOpener opens the configured camera and detector for an auto-marking
// poller.
func cameraOpener(cfg *config.Config, svc *attendance.Service, identify bool) poller.Opener {
	return func() (poller.Config, error) {
		source, err := vision.OpenSource(cfg.Camera)
		if err != nil {
			return poller.Config{}, err
		}
		detector, err := vision.OpenDetector(cfg.Detector)
		if err != nil {
			source.Close()
			return poller.Config{}, err
		}

		pc := poller.Config{
			Source:   source,
			Detector: detector,
			Interval: cfg.Recognition.PollInterval,
			Cooldown: cfg.Recognition.Cooldown,
			Marker:   svc,
		}
		if identify && svc.Gallery() != nil {
			pc.Identifier = svc
		}
		return pc, nil
	}
}

// statusPrinter prints poller messages when they change.
func statusPrinter(out io.Writer) func(poller.Status) {
	var last string
	return func(st poller.Status) {
		if st.Message == last {
			return
		}
		last = st.Message
		fmt.Fprintln(out, st.Message)
	}
}

func printNotification(out io.Writer, note attendance.Notification) {
	switch {
	case note.Time != "":
		fmt.Fprintf(out, "[%s] %s (ID: %s): %s\n", note.Time, note.Name, note.StudentID, note.Status)
	default:
		fmt.Fprintf(out, "%s (ID: %s): %s\n", note.Name, note.StudentID, note.Status)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval := mustGetDuration(cmd, "interval")
	cooldown := mustGetDuration(cmd, "cooldown")
	threshold := mustGetFloat64(cmd, "threshold")
	noIdentify := mustGetBool(cmd, "no-identify")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if interval > 0 {
		cfg.Recognition.PollInterval = interval
	}
	if cooldown > 0 {
		cfg.Recognition.Cooldown = cooldown
	}
	if threshold > 0 {
		cfg.Recognition.Threshold = threshold
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	pc, err := cameraOpener(cfg, a.svc, !noIdentify)()
	if errors.Is(err, vision.ErrCameraUnavailable) {
		return fmt.Errorf("cannot open camera: %w", err)
	}
	if err != nil {
		return err
	}

	out := &syncWriter{w: os.Stdout}
	pc.OnStatus = statusPrinter(out)
	p := poller.New(pc)

	notes := a.svc.Notifications().Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for note := range notes {
			printNotification(out, note)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pc.Identifier != nil {
		fmt.Fprintf(out, "Identifying against %d reference photos (threshold %.2f)\n", a.svc.Gallery().Len(), cfg.Recognition.Threshold)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	runErr := p.Run(ctx)

	a.svc.Notifications().Unsubscribe(notes)
	wg.Wait()
	return runErr
}
