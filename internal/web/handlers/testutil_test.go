package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/kozaktomas/attendance/internal/users"
	"github.com/kozaktomas/attendance/internal/vision"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)

// newTestService creates a running service over temporary stores holding
// the students 1 Ada and 2 Grace.
func newTestService(t *testing.T) *attendance.Service {
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

	svc := attendance.New(attendance.Options{
		Tally:    ts,
		Roster:   rs,
		Register: ls,
		Gallery:  vision.NewGallery(constants.DefaultTemplateSize, constants.DefaultMatchThreshold),
	})

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

	for _, st := range []roster.Student{
		{ID: "1", Name: "Ada", Email: "ada@school.test"},
		{ID: "2", Name: "Grace", Email: "grace@school.test"},
	} {
		if _, err := svc.AddStudent(context.Background(), st, nil); err != nil {
			t.Fatalf("AddStudent failed: %v", err)
		}
	}
	return svc
}

// newTestUsers creates an account store with an admin and a teacher.
func newTestUsers(t *testing.T) *users.Store {
	t.Helper()
	store, err := users.Open(filepath.Join(t.TempDir(), constants.UsersFile), []users.Account{
		{Username: "admin", Password: "admin123", Role: constants.RoleAdmin, Name: "Administrator"},
		{Username: "teacher", Password: "teacher123", Role: constants.RoleTeacher, Name: "Teacher"},
	})
	if err != nil {
		t.Fatalf("users.Open failed: %v", err)
	}
	return store
}

// withRole puts a session of the given role into the request context.
func withRole(r *http.Request, role string) *http.Request {
	session := &middleware.Session{ID: "test-session", Username: role, Role: role}
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// gradientPNG is a reference photo with enough contrast to enrol.
func gradientPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for x := 0; x < 120; x++ {
		for y := 0; y < 120; y++ {
			v := uint8(x * 2)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
