package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/report"
)

// ReportsHandler serves the CSV reports
type ReportsHandler struct {
	svc *attendance.Service
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(svc *attendance.Service) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// Daily returns the CSV report of ?date=, today when omitted
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" && !validDate(date) {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if date == "" {
		var err error
		if date, err = h.svc.Today(r.Context()); err != nil {
			respondServiceError(w, r, "build report", err)
			return
		}
	}

	var buf bytes.Buffer
	if err := h.svc.WriteDailyReport(r.Context(), date, &buf); err != nil {
		respondServiceError(w, r, "build report", err)
		return
	}
	respondCSV(w, report.DailyFilename(date), buf.Bytes())
}

// Export returns every recorded date as one CSV file
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.WriteExport(r.Context(), &buf); err != nil {
		respondServiceError(w, r, "export records", err)
		return
	}
	respondCSV(w, "attendance_export.csv", buf.Bytes())
}

// respondCSV sends a CSV attachment. The body is rendered first so failures
// still produce a JSON error.
func respondCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
