package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/roster"
)

// StudentsHandler handles the roster endpoints
type StudentsHandler struct {
	svc *attendance.Service
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(svc *attendance.Service) *StudentsHandler {
	return &StudentsHandler{svc: svc}
}

// StudentResponse is a student as returned by the API
type StudentResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Course    string `json:"course,omitempty"`
	Year      string `json:"year,omitempty"`
	FaceImage string `json:"face_image,omitempty"`
	HasFace   bool   `json:"has_face"`
}

func toStudentResponse(st roster.Student) StudentResponse {
	return StudentResponse{
		ID:        st.ID,
		Name:      st.Name,
		Email:     st.Email,
		Phone:     st.Phone,
		Course:    st.Course,
		Year:      st.Year,
		FaceImage: st.FaceImage,
		HasFace:   st.HasFace(),
	}
}

// EnrollmentResponse reports the outcome of storing a reference photo
type EnrollmentResponse struct {
	Student    StudentResponse `json:"student"`
	Enrolled   bool            `json:"enrolled"`
	Duplicates []string        `json:"duplicates,omitempty"`
}

func toEnrollmentResponse(e attendance.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		Student:    toStudentResponse(e.Student),
		Enrolled:   e.Enrolled,
		Duplicates: e.Duplicates,
	}
}

type createStudentRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Course string `json:"course"`
	Year   string `json:"year"`
	Face   []byte `json:"face"` // base64 encoded image, optional
}

// List returns all students, filtered by name with ?q=
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []roster.Student
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = h.svc.FindStudents(r.Context(), q)
	} else {
		list, err = h.svc.Students(r.Context())
	}
	if err != nil {
		respondServiceError(w, r, "list students", err)
		return
	}

	result := make([]StudentResponse, len(list))
	for i, st := range list {
		result[i] = toStudentResponse(st)
	}
	respondJSON(w, http.StatusOK, result)
}

// Create adds a student with an optional reference photo
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	enrollment, err := h.svc.AddStudent(r.Context(), roster.Student{
		ID:     req.ID,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Course: req.Course,
		Year:   req.Year,
	}, req.Face)
	if err != nil {
		respondServiceError(w, r, "add student", err)
		return
	}
	respondJSON(w, http.StatusCreated, toEnrollmentResponse(enrollment))
}

// Get returns one student
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Student(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "get student", err)
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(st))
}

// Delete removes a student. Their register entries are kept.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.RemoveStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "remove student", err)
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(st))
}

// UploadFace replaces the reference photo with the raw image in the body
func (h *StudentsHandler) UploadFace(w http.ResponseWriter, r *http.Request) {
	data, err := readImageBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	enrollment, err := h.svc.EnrollFace(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		respondServiceError(w, r, "enroll face", err)
		return
	}
	respondJSON(w, http.StatusOK, toEnrollmentResponse(enrollment))
}
