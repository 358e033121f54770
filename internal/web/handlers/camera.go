package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/poller"
)

// CameraHandler controls the camera session and streams its events
type CameraHandler struct {
	svc       *attendance.Service
	session   *poller.Session
	keepAlive time.Duration
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(svc *attendance.Service, session *poller.Session) *CameraHandler {
	return &CameraHandler{
		svc:       svc,
		session:   session,
		keepAlive: constants.SSEKeepAliveInterval,
	}
}

// Start opens the camera and starts auto-marking
func (h *CameraHandler) Start(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Start()
	if err != nil {
		if errors.Is(err, poller.ErrAlreadyRunning) {
			respondJSON(w, http.StatusConflict, st)
			return
		}
		respondServiceError(w, r, "start camera", err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// Stop stops the running session and releases the camera
func (h *CameraHandler) Stop(w http.ResponseWriter, r *http.Request) {
	st, _ := h.session.Stop()
	respondJSON(w, http.StatusOK, st)
}

// Status returns the last status of the session
func (h *CameraHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Status())
}

// Events streams "status" events of the camera session and "notification"
// events of the register until the client disconnects.
func (h *CameraHandler) Events(w http.ResponseWriter, r *http.Request) {
	statusCh := h.session.Subscribe()
	defer h.session.Unsubscribe(statusCh)
	notifier := h.svc.Notifications()
	noteCh := notifier.Subscribe()
	defer notifier.Unsubscribe(noteCh)

	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}
	sendSSEEvent(w, flusher, "status", h.session.Status())

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-statusCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "status", st)
		case note, ok := <-noteCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "notification", note)
		case <-ticker.C:
			sendSSEKeepAlive(w, flusher)
		}
	}
}

// IdentifyResponse is the outcome of a manual identification
type IdentifyResponse struct {
	Identified bool    `json:"identified"`
	StudentID  string  `json:"student_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Score      float64 `json:"score"`
	Marked     bool    `json:"marked"`
}

// Identify matches the raw image in the body against the enrolled reference
// photos. ?db=true searches the database templates, ?mark=true marks the
// identified student present.
func (h *CameraHandler) Identify(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	var (
		id    attendance.Identification
		found bool
	)
	if q.Get("db") == "true" {
		id, found, err = h.svc.IdentifyStored(ctx, img, nil)
	} else {
		id, found, err = h.svc.Identify(ctx, img, nil)
	}
	if err != nil {
		respondServiceError(w, r, "identify", err)
		return
	}

	resp := IdentifyResponse{Identified: found, StudentID: id.StudentID, Name: id.Name, Score: id.Score}
	if found && q.Get("mark") == "true" {
		if _, err := h.svc.SetStatus(ctx, id.StudentID, true); err != nil {
			respondServiceError(w, r, "mark attendance", err)
			return
		}
		resp.Marked = true
	}
	respondJSON(w, http.StatusOK, resp)
}
