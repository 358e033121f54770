package attendance

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database/mock"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/kozaktomas/attendance/internal/vision"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)

type testEnv struct {
	svc    *Service
	dir    string
	mirror *mock.MockMirror
	tmpl   *mock.MockTemplateStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	ts, err := tally.Open(filepath.Join(dir, constants.TallyFile), map[string]string{"1": "Ada", "2": "Grace"})
	if err != nil {
		t.Fatalf("tally.Open failed: %v", err)
	}
	ts.SetClock(func() time.Time { return fixedNow })

	rs, err := roster.Open(filepath.Join(dir, constants.StudentsFile))
	if err != nil {
		t.Fatalf("roster.Open failed: %v", err)
	}
	ls, err := register.Open(filepath.Join(dir, constants.RegisterFile))
	if err != nil {
		t.Fatalf("register.Open failed: %v", err)
	}
	ls.SetClock(func() time.Time { return fixedNow })

	env := &testEnv{
		dir:    dir,
		mirror: mock.NewMockMirror(),
		tmpl:   mock.NewMockTemplateStore(),
	}
	env.svc = New(Options{
		Tally:    ts,
		Roster:   rs,
		Register: ls,
		Gallery:  vision.NewGallery(constants.DefaultTemplateSize, constants.DefaultMatchThreshold),
	})
	env.svc.UseDatabase(env.mirror, env.tmpl)
	startService(t, env.svc)
	return env
}

func startService(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func student(id, name string) roster.Student {
	return roster.Student{ID: id, Name: name, Email: strings.ToLower(name) + "@school.test"}
}

func gradientImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for x := 0; x < 120; x++ {
		for y := 0; y < 120; y++ {
			v := uint8(x * 2)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func checkerImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for x := 0; x < 120; x++ {
		for y := 0; y < 120; y++ {
			v := uint8(30)
			if (x/15+y/15)%2 == 0 {
				v = 220
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func stripeImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for x := 0; x < 120; x++ {
		for y := 0; y < 120; y++ {
			v := uint8(30)
			if (y/6)%2 == 0 {
				v = 220
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestMarkTally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	notes := env.svc.Notifications().Subscribe()
	defer env.svc.Notifications().Unsubscribe(notes)

	e, err := env.svc.MarkTally(ctx, "2")
	if err != nil {
		t.Fatalf("MarkTally failed: %v", err)
	}
	if e.TotalAttendance != 1 || e.LastAttendance != "2026-10-18 09:30:00" {
		t.Errorf("unexpected entry: %+v", e)
	}

	select {
	case n := <-notes:
		if n.StudentID != "2" || n.Name != "Grace" {
			t.Errorf("unexpected notification: %+v", n)
		}
	default:
		t.Error("expected a notification")
	}

	if _, err := env.svc.MarkTally(ctx, "9"); !errors.Is(err, tally.ErrUnknownID) {
		t.Errorf("expected ErrUnknownID, got %v", err)
	}

	records, err := env.svc.TallyRecords(ctx)
	if err != nil {
		t.Fatalf("TallyRecords failed: %v", err)
	}
	if len(records) != 2 || records[1].TotalAttendance != 1 || records[0].TotalAttendance != 0 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestAddStudent_WithFace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.AddStudent(ctx, student("1", "Ada"), encodePNG(t, gradientImage()))
	if err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if !res.Enrolled {
		t.Error("expected the photo to be enrolled")
	}
	if res.Student.FaceImage != "Images/1.jpg" {
		t.Errorf("unexpected face image path %q", res.Student.FaceImage)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "Images", "1.jpg")); err != nil {
		t.Errorf("expected stored photo: %v", err)
	}
	if env.svc.Gallery().Len() != 1 {
		t.Errorf("expected 1 gallery entry, got %d", env.svc.Gallery().Len())
	}
	if n, _ := env.tmpl.CountTemplates(ctx); n != 1 {
		t.Errorf("expected 1 stored template, got %d", n)
	}
	students, _ := env.mirror.ListStudents(ctx)
	if len(students) != 1 || students[0].FaceImage != "Images/1.jpg" {
		t.Errorf("unexpected mirrored students: %+v", students)
	}
}

func TestAddStudent_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.AddStudent(ctx, student("1", "Ada"), []byte("not an image")); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
	if students, _ := env.svc.Students(ctx); len(students) != 0 {
		t.Error("student with a broken photo must not be added")
	}

	if _, err := env.svc.AddStudent(ctx, student("1", "Ada"), nil); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if _, err := env.svc.AddStudent(ctx, student("1", "Ada"), nil); !errors.Is(err, roster.ErrStudentExists) {
		t.Errorf("expected ErrStudentExists, got %v", err)
	}
	if _, err := env.svc.AddStudent(ctx, roster.Student{ID: "2", Name: "No Mail"}, nil); !errors.Is(err, roster.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
	if _, err := env.svc.EnrollFace(ctx, "42", encodePNG(t, gradientImage())); !errors.Is(err, roster.ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestEnrollFace_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	photo := encodePNG(t, gradientImage())

	if _, err := env.svc.AddStudent(ctx, student("1", "Ada"), photo); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if _, err := env.svc.AddStudent(ctx, student("2", "Grace"), nil); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	res, err := env.svc.EnrollFace(ctx, "2", photo)
	if err != nil {
		t.Fatalf("EnrollFace failed: %v", err)
	}
	if len(res.Duplicates) != 1 || res.Duplicates[0] != "1" {
		t.Errorf("expected duplicate of 1, got %v", res.Duplicates)
	}
}

func TestEnrollFace_Replace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.AddStudent(ctx, student("1", "Ada"), encodePNG(t, gradientImage())); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	for _, img := range []image.Image{checkerImage(), stripeImage()} {
		if _, err := env.svc.EnrollFace(ctx, "1", encodePNG(t, img)); err != nil {
			t.Fatalf("EnrollFace failed: %v", err)
		}
	}
	if _, err := env.svc.AddStudent(ctx, student("2", "Grace"), encodePNG(t, gradientImage())); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if _, err := env.svc.AddStudent(ctx, student("3", "Linus"), encodePNG(t, checkerImage())); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}

	if env.svc.Gallery().Len() != 3 {
		t.Errorf("expected 3 gallery entries, got %d", env.svc.Gallery().Len())
	}
	want := map[string]image.Image{"1": stripeImage(), "2": gradientImage(), "3": checkerImage()}
	for id, img := range want {
		m, ok, err := env.svc.Match(ctx, img, nil)
		if err != nil || !ok || m.StudentID != id {
			t.Errorf("Match for %s = %+v, %v, %v", id, m, ok, err)
		}
	}
}

func TestAddStudent_PhotoStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// a file where the images directory should be
	if err := os.WriteFile(filepath.Join(env.dir, constants.ImagesDir), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.AddStudent(ctx, student("1", "Ada"), encodePNG(t, gradientImage())); err == nil {
		t.Fatal("expected an error when the photo cannot be stored")
	}
	if students, _ := env.svc.Students(ctx); len(students) != 0 {
		t.Errorf("student without a stored photo must not be added, got %+v", students)
	}
	if students, _ := env.mirror.ListStudents(ctx); len(students) != 0 {
		t.Errorf("nothing should be mirrored, got %+v", students)
	}
	if env.svc.Gallery().Len() != 0 {
		t.Error("gallery must stay empty")
	}
}

func TestRemoveStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.AddStudent(ctx, student("1", "Ada"), encodePNG(t, gradientImage())); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if _, err := env.svc.SetStatus(ctx, "1", true); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	if _, err := env.svc.RemoveStudent(ctx, "1"); err != nil {
		t.Fatalf("RemoveStudent failed: %v", err)
	}
	if env.svc.Gallery().Len() != 0 {
		t.Error("expected gallery entry to be removed")
	}
	if n, _ := env.tmpl.CountTemplates(ctx); n != 0 {
		t.Errorf("expected stored template to be removed, got %d", n)
	}
	if n, _ := env.svc.PresentCount(ctx, ""); n != 1 {
		t.Errorf("register entries must survive removal, got %d", n)
	}
	if _, err := env.svc.RemoveStudent(ctx, "1"); !errors.Is(err, roster.ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.AddStudent(ctx, student("1", "Ada"), nil)

	row, err := env.svc.SetStatus(ctx, "1", true)
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if row.Status != constants.StatusPresent || row.Time != "09:30:00" || row.Date != "2026-10-18" {
		t.Errorf("unexpected row: %+v", row)
	}

	row, err = env.svc.SetStatus(ctx, "1", false)
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if row.Status != constants.StatusAbsent || row.Time != "" {
		t.Errorf("absent must clear the time: %+v", row)
	}

	entries, _ := env.mirror.ListEntries(ctx, "2026-10-18")
	if len(entries) != 1 || entries[0].Present {
		t.Errorf("unexpected mirrored entries: %+v", entries)
	}

	if _, err := env.svc.SetStatus(ctx, "7", true); !errors.Is(err, roster.ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestAutoMark(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, st := range []roster.Student{student("1", "Ada"), student("2", "Grace"), student("3", "Linus")} {
		env.svc.AddStudent(ctx, st, nil)
	}

	res, err := env.svc.AutoMark(ctx, "2")
	if err != nil {
		t.Fatalf("AutoMark failed: %v", err)
	}
	if len(res.Marked) != 1 || res.Marked[0] != "2" {
		t.Errorf("expected only 2 marked, got %v", res.Marked)
	}

	res, err = env.svc.AutoMark(ctx, "2")
	if err != nil {
		t.Fatalf("AutoMark failed: %v", err)
	}
	if len(res.Marked) != 0 {
		t.Errorf("already present student must not be marked again, got %v", res.Marked)
	}

	res, err = env.svc.AutoMark(ctx, "")
	if err != nil {
		t.Fatalf("AutoMark failed: %v", err)
	}
	if len(res.Marked) != 2 || res.Marked[0] != "1" || res.Marked[1] != "3" {
		t.Errorf("expected 1 and 3 marked, got %v", res.Marked)
	}

	if _, err := env.svc.AutoMark(ctx, "99"); !errors.Is(err, roster.ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestMarkAllPresentAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, st := range []roster.Student{student("1", "Ada"), student("2", "Grace")} {
		env.svc.AddStudent(ctx, st, nil)
	}

	stats, err := env.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Rate != "0.0%" || stats.TotalStudents != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	n, err := env.svc.MarkAllPresent(ctx)
	if err != nil || n != 2 {
		t.Fatalf("MarkAllPresent = %d, %v", n, err)
	}
	n, _ = env.svc.MarkAllPresent(ctx)
	if n != 0 {
		t.Errorf("second MarkAllPresent marked %d", n)
	}

	stats, _ = env.svc.Stats(ctx)
	if stats.Rate != "100.0%" || stats.PresentToday != 2 || stats.RecordedDays != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDeletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.AddStudent(ctx, student("1", "Ada"), nil)

	if _, err := env.svc.DeleteToday(ctx); !errors.Is(err, register.ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}
	if _, err := env.svc.DeleteAll(ctx); !errors.Is(err, register.ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}

	env.svc.SetStatus(ctx, "1", true)
	n, err := env.svc.DeleteToday(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteToday = %d, %v", n, err)
	}
	if dates, _ := env.svc.Dates(ctx); len(dates) != 0 {
		t.Errorf("expected no dates, got %v", dates)
	}

	if _, err := env.svc.DeleteDay(ctx, "2020-01-01"); !errors.Is(err, register.ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}

	env.svc.SetStatus(ctx, "1", true)
	n, err = env.svc.DeleteAll(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteAll = %d, %v", n, err)
	}
	if c, _ := env.mirror.CountEntries(ctx); c != 0 {
		t.Errorf("expected mirror to be emptied, got %d", c)
	}
}

func TestMirrorFailureKeepsLocalWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mirror.SaveEntryError = errors.New("connection refused")
	env.svc.AddStudent(ctx, student("1", "Ada"), nil)

	if _, err := env.svc.SetStatus(ctx, "1", true); err != nil {
		t.Fatalf("mirror failure must not fail the write: %v", err)
	}
	if n, _ := env.svc.PresentCount(ctx, "2026-10-18"); n != 1 {
		t.Errorf("expected local entry, got %d present", n)
	}
}

func TestReports(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.AddStudent(ctx, student("1", "Ada"), nil)
	env.svc.AddStudent(ctx, student("2", "Grace"), nil)
	env.svc.SetStatus(ctx, "2", true)

	var daily bytes.Buffer
	if err := env.svc.WriteDailyReport(ctx, "", &daily); err != nil {
		t.Fatalf("WriteDailyReport failed: %v", err)
	}
	want := "Student ID,Name,Status,Time\n1,Ada,Absent,\n2,Grace,Present,09:30:00\n"
	if daily.String() != want {
		t.Errorf("daily report:\n%s\nwant:\n%s", daily.String(), want)
	}

	var export bytes.Buffer
	if err := env.svc.WriteExport(ctx, &export); err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}
	want = "Date,Student ID,Name,Status,Time\n2026-10-18,1,Ada,Absent,\n2026-10-18,2,Grace,Present,09:30:00\n"
	if export.String() != want {
		t.Errorf("export:\n%s\nwant:\n%s", export.String(), want)
	}
}

func TestIdentify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.AddStudent(ctx, student("1", "Ada"), encodePNG(t, gradientImage()))
	env.svc.AddStudent(ctx, student("2", "Grace"), encodePNG(t, checkerImage()))

	notes := env.svc.Notifications().Subscribe()
	defer env.svc.Notifications().Unsubscribe(notes)

	id, ok, err := env.svc.Identify(ctx, checkerImage(), nil)
	if err != nil || !ok {
		t.Fatalf("Identify = %+v, %v, %v", id, ok, err)
	}
	if id.StudentID != "2" || id.Name != "Grace" || id.Score <= 0.6 {
		t.Errorf("unexpected identification: %+v", id)
	}
	select {
	case n := <-notes:
		if n.Status != constants.StatusIdentified {
			t.Errorf("expected Identified notification, got %+v", n)
		}
	default:
		t.Error("expected a notification")
	}

	stored, ok, err := env.svc.IdentifyStored(ctx, gradientImage(), nil)
	if err != nil || !ok || stored.StudentID != "1" {
		t.Errorf("IdentifyStored = %+v, %v, %v", stored, ok, err)
	}

	flat := image.NewRGBA(image.Rect(0, 0, 50, 50))
	if _, ok, _ := env.svc.Match(ctx, flat, nil); ok {
		t.Error("a uniform frame must not match")
	}
}

func TestLoadFacesOnRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.AddStudent(ctx, student("1", "Ada"), encodePNG(t, checkerImage()))

	rs, err := roster.Open(filepath.Join(env.dir, constants.StudentsFile))
	if err != nil {
		t.Fatalf("roster.Open failed: %v", err)
	}
	svc := New(Options{
		Roster:  rs,
		Gallery: vision.NewGallery(constants.DefaultTemplateSize, constants.DefaultMatchThreshold),
	})
	if svc.Gallery().Len() != 1 {
		t.Errorf("expected stored photo to be loaded, gallery has %d", svc.Gallery().Len())
	}
}

func TestLoadFacesOnRestart_FlatPhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flat := image.NewRGBA(image.Rect(0, 0, 60, 60))
	for i := range flat.Pix {
		flat.Pix[i] = 128
	}
	res, err := env.svc.AddStudent(ctx, student("1", "Ada"), encodePNG(t, flat))
	if err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if res.Enrolled {
		t.Error("a uniform photo cannot be enrolled")
	}

	rs, err := roster.Open(filepath.Join(env.dir, constants.StudentsFile))
	if err != nil {
		t.Fatalf("roster.Open failed: %v", err)
	}
	svc := New(Options{
		Roster:  rs,
		Gallery: vision.NewGallery(constants.DefaultTemplateSize, constants.DefaultMatchThreshold),
	})
	startService(t, svc)
	if svc.Gallery().Len() != 0 {
		t.Errorf("uniform photo must not reach the gallery, got %d", svc.Gallery().Len())
	}

	res, err = svc.AddStudent(ctx, student("2", "Grace"), encodePNG(t, flat))
	if err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if len(res.Duplicates) != 1 || res.Duplicates[0] != "1" {
		t.Errorf("expected duplicate of 1 after restart, got %v", res.Duplicates)
	}
}

func TestCallAfterStop(t *testing.T) {
	svc := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Run(ctx)

	if _, err := svc.Today(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
