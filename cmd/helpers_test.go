package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/poller"
	"github.com/kozaktomas/attendance/internal/vision"
)

func TestValidateDate(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"2026-10-18", false},
		{"2024-02-29", false},
		{"2026-02-30", true},
		{"18.10.2026", true},
		{"today", true},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			if err := validateDate(tt.date); (err != nil) != tt.wantErr {
				t.Errorf("validateDate(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
			}
		})
	}
}

func TestIsYes(t *testing.T) {
	for _, in := range []string{"y\n", "Y", " yes ", "YES\r\n"} {
		if !isYes(in) {
			t.Errorf("isYes(%q) = false, want true", in)
		}
	}
	for _, in := range []string{"", "\n", "n", "no", "yep"} {
		if isYes(in) {
			t.Errorf("isYes(%q) = true, want false", in)
		}
	}
}

func TestImportCandidates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.jpg", "2.PNG", "3.bmp", "notes.txt", "4.jpeg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "5.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := importCandidates(dir)
	if err != nil {
		t.Fatalf("importCandidates failed: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	want := []string{"1.jpg", "2.PNG", "3.bmp", "4.jpeg"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("file %d = %s, want %s", i, names[i], want[i])
		}
	}

	if _, err := importCandidates(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	err := writeReportFile(path, func(f *os.File) error {
		_, err := f.WriteString("Student ID,Name,Status,Time\n")
		return err
	})
	if err != nil {
		t.Fatalf("writeReportFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Student ID,Name,Status,Time\n" {
		t.Errorf("unexpected file content %q", data)
	}

	boom := errors.New("boom")
	if err := writeReportFile(path, func(*os.File) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected write error, got %v", err)
	}
}

func TestStatusPrinter(t *testing.T) {
	var out bytes.Buffer
	printStatus := statusPrinter(&out)

	printStatus(poller.Status{Message: "Camera: On - Detecting faces..."})
	printStatus(poller.Status{Message: "Camera: On - No faces detected"})
	printStatus(poller.Status{Message: "Camera: On - No faces detected"})
	printStatus(poller.Status{Message: "Ada identified and marked present!"})

	want := "Camera: On - Detecting faces...\nCamera: On - No faces detected\nAda identified and marked present!\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPrintNotification(t *testing.T) {
	var out bytes.Buffer
	printNotification(&out, attendance.Notification{StudentID: "1", Name: "Ada", Status: "Present", Time: "09:30:00"})
	printNotification(&out, attendance.Notification{StudentID: "2", Name: "Grace", Status: "Identified"})

	want := "[09:30:00] Ada (ID: 1): Present\nGrace (ID: 2): Identified\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCameraOpener_MissingSnapshot(t *testing.T) {
	cfg := &config.Config{}
	cfg.Camera.SnapshotFile = filepath.Join(t.TempDir(), "missing.jpg")

	_, err := cameraOpener(cfg, newConsoleService(t), true)()
	if !errors.Is(err, vision.ErrCameraUnavailable) {
		t.Errorf("expected ErrCameraUnavailable, got %v", err)
	}
}

func TestCameraOpener_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	cfg.Camera.SnapshotFile = path
	cfg.Detector.URL = "http://127.0.0.1:1"
	cfg.Recognition.PollInterval = 250 * time.Millisecond

	svc := newConsoleService(t)
	pc, err := cameraOpener(cfg, svc, true)()
	if err != nil {
		t.Fatalf("cameraOpener failed: %v", err)
	}
	defer pc.Source.Close()
	defer pc.Detector.Close()

	if pc.Marker == nil {
		t.Error("expected the service as marker")
	}
	if pc.Identifier != nil {
		t.Error("identifier should be nil without a gallery")
	}
	if pc.Interval != cfg.Recognition.PollInterval {
		t.Errorf("interval = %v, want %v", pc.Interval, cfg.Recognition.PollInterval)
	}
}
