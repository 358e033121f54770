package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/attendance"
)

// TallyHandler exposes the attendance counters
type TallyHandler struct {
	svc *attendance.Service
}

// NewTallyHandler creates a new tally handler
func NewTallyHandler(svc *attendance.Service) *TallyHandler {
	return &TallyHandler{svc: svc}
}

// List returns every counter in id order
func (h *TallyHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.TallyRecords(r.Context())
	if err != nil {
		respondServiceError(w, r, "load tally", err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Mark increments the counter of one person
func (h *TallyHandler) Mark(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.MarkTally(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "mark attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}
