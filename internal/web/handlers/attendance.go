package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/report"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

// AttendanceHandler handles the daily register endpoints
type AttendanceHandler struct {
	svc *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// DashboardResponse holds today's numbers and register
type DashboardResponse struct {
	Date  string         `json:"date"`
	Stats register.Stats `json:"stats"`
	Rows  []report.Row   `json:"rows"`
}

// DayResponse is the register of one date
type DayResponse struct {
	Date    string       `json:"date"`
	Present int          `json:"present"`
	Rows    []report.Row `json:"rows"`
}

// Dashboard returns the statistics and register of today
func (h *AttendanceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		respondServiceError(w, r, "load statistics", err)
		return
	}
	date, err := h.svc.Today(ctx)
	if err != nil {
		respondServiceError(w, r, "load register", err)
		return
	}
	rows, err := h.svc.Day(ctx, date)
	if err != nil {
		respondServiceError(w, r, "load register", err)
		return
	}
	respondJSON(w, http.StatusOK, DashboardResponse{Date: date, Stats: stats, Rows: rows})
}

// Day returns the register of ?date=, today when omitted
func (h *AttendanceHandler) Day(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" && !validDate(date) {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if date == "" {
		var err error
		if date, err = h.svc.Today(r.Context()); err != nil {
			respondServiceError(w, r, "load register", err)
			return
		}
	}

	rows, err := h.svc.Day(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, "load register", err)
		return
	}
	present := 0
	for _, row := range rows {
		if row.Present() {
			present++
		}
	}
	respondJSON(w, http.StatusOK, DayResponse{Date: date, Present: present, Rows: rows})
}

// Dates lists the recorded dates
func (h *AttendanceHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.svc.Dates(r.Context())
	if err != nil {
		respondServiceError(w, r, "list dates", err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	respondJSON(w, http.StatusOK, dates)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus marks a student present or absent for today
func (h *AttendanceHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var present bool
	switch strings.ToLower(req.Status) {
	case "present":
		present = true
	case "absent":
	default:
		respondError(w, http.StatusBadRequest, `status must be "present" or "absent"`)
		return
	}

	row, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), present)
	if err != nil {
		respondServiceError(w, r, "update attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, row)
}

// MarkAllPresent marks every student present for today
func (h *AttendanceHandler) MarkAllPresent(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllPresent(r.Context())
	if err != nil {
		respondServiceError(w, r, "mark all present", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"marked": n})
}

// Delete removes register records. ?scope=today (default), ?scope=date&date=
// or ?scope=all, the last one for administrators only.
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		n   int
		err error
	)
	switch q.Get("scope") {
	case "", "today":
		n, err = h.svc.DeleteToday(ctx)
	case "date":
		date := q.Get("date")
		if !validDate(date) {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		n, err = h.svc.DeleteDay(ctx, date)
	case "all":
		if session := middleware.GetSessionFromContext(ctx); session == nil || !session.IsAdmin() {
			respondError(w, http.StatusForbidden, "admin role required")
			return
		}
		n, err = h.svc.DeleteAll(ctx)
	default:
		respondError(w, http.StatusBadRequest, "scope must be today, date or all")
		return
	}
	if err != nil {
		respondServiceError(w, r, "delete records", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func validDate(date string) bool {
	_, err := time.Parse(constants.DateLayout, date)
	return err == nil
}
