package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/poller"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/kozaktomas/attendance/internal/users"
	"github.com/kozaktomas/attendance/internal/vision"
)

func TestRespondJSON_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()
	data := map[string]string{"status": "ok"}

	respondJSON(recorder, http.StatusOK, data)

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestRespondJSON_SetsStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"BadRequest", http.StatusBadRequest},
		{"NotFound", http.StatusNotFound},
		{"InternalServerError", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, nil)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
		})
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	// Body should be empty for nil data
	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()
	errorMessage := "something went wrong"

	respondError(recorder, http.StatusBadRequest, errorMessage)

	var result map[string]string
	err := json.Unmarshal(recorder.Body.Bytes(), &result)
	if err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if result["error"] != errorMessage {
		t.Errorf("expected error '%s', got '%s'", errorMessage, result["error"])
	}
}

func TestHealthCheck_ReturnsStatusOk(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	recorder := httptest.NewRecorder()

	HealthCheck(recorder, req)

	var result map[string]string
	err := json.Unmarshal(recorder.Body.Bytes(), &result)
	if err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get 9: %w", roster.ErrStudentNotFound), http.StatusNotFound},
		{tally.ErrUnknownID, http.StatusNotFound},
		{register.ErrNoRecords, http.StatusNotFound},
		{roster.ErrStudentExists, http.StatusConflict},
		{users.ErrUserExists, http.StatusConflict},
		{poller.ErrAlreadyRunning, http.StatusConflict},
		{roster.ErrMissingField, http.StatusBadRequest},
		{attendance.ErrInvalidImage, http.StatusBadRequest},
		{users.ErrInvalidRole, http.StatusBadRequest},
		{vision.ErrCameraUnavailable, http.StatusServiceUnavailable},
		{database.ErrNotInitialized, http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			if got := errorStatus(tc.err); got != tc.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestRespondServiceError_HidesInternalErrors(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/students", nil)

	respondServiceError(recorder, req, "list students", errors.New("open /secret/path: permission denied"))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to list students")
}

func TestReadImageBody(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/", strings.NewReader(""))
		if _, err := readImageBody(httptest.NewRecorder(), req); err == nil {
			t.Error("expected error for empty body")
		}
	})

	t.Run("too large", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/", bytes.NewReader(make([]byte, constants.MaxUploadSize+1)))
		_, err := readImageBody(httptest.NewRecorder(), req)
		if err == nil || !strings.Contains(err.Error(), "larger than") {
			t.Errorf("expected size error, got %v", err)
		}
	})

	t.Run("invalid image", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/", strings.NewReader("not an image"))
		_, err := readImage(httptest.NewRecorder(), req)
		if !errors.Is(err, attendance.ErrInvalidImage) {
			t.Errorf("expected ErrInvalidImage, got %v", err)
		}
	})

	t.Run("oversized canvas", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/", strings.NewReader("GIF89a\xff\xff\xff\xff\x00\x00\x00"))
		_, err := readImage(httptest.NewRecorder(), req)
		if !errors.Is(err, attendance.ErrInvalidImage) || !strings.Contains(err.Error(), "too large") {
			t.Errorf("expected ErrInvalidImage for a huge canvas, got %v", err)
		}
	})
}
