package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/fingerprint"
	"github.com/kozaktomas/attendance/internal/poller"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/kozaktomas/attendance/internal/users"
	"github.com/kozaktomas/attendance/internal/vision"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, roster.ErrStudentNotFound),
		errors.Is(err, tally.ErrUnknownID),
		errors.Is(err, register.ErrNoRecords):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrStudentExists),
		errors.Is(err, users.ErrUserExists),
		errors.Is(err, poller.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, roster.ErrMissingField),
		errors.Is(err, roster.ErrInvalidID),
		errors.Is(err, attendance.ErrInvalidImage),
		errors.Is(err, users.ErrInvalidUsername),
		errors.Is(err, users.ErrInvalidPassword),
		errors.Is(err, users.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, vision.ErrCameraUnavailable),
		errors.Is(err, vision.ErrNoDetector),
		errors.Is(err, database.ErrNotInitialized),
		errors.Is(err, attendance.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError sends err with the status of its kind. Unexpected
// errors are logged and hidden from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: failed to %s: %v", r.Method, sanitizeForLog(r.URL.Path), action, err)
		respondError(w, status, "failed to "+action)
		return
	}
	respondError(w, status, err.Error())
}

// readImageBody reads a raw image upload, bounded by MaxUploadSize.
func readImageBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("image larger than %d bytes", tooLarge.Limit)
		}
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty image body")
	}
	return data, nil
}

// readImage reads and decodes a raw image upload.
func readImage(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	data, err := readImageBody(w, r)
	if err != nil {
		return nil, err
	}
	img, err := fingerprint.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", attendance.ErrInvalidImage, err)
	}
	return img, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
