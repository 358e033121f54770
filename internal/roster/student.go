// Package roster manages the students known to the attendance register.
package roster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrStudentExists   = errors.New("student ID already exists")
	ErrStudentNotFound = errors.New("student not found")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidID       = errors.New("student ID must be a positive integer")
)

// Student is one enrolled person. The ID is the key of the students document.
type Student struct {
	ID        string `json:"-"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Course    string `json:"course"`
	Year      string `json:"year"`
	FaceImage string `json:"face_image"` // relative to the data directory, empty when none
}

// HasFace reports whether a reference photo is enrolled.
func (s Student) HasFace() bool {
	return s.FaceImage != ""
}

// Validate checks the required fields of a new student.
func (s Student) Validate() error {
	var missing []string
	if strings.TrimSpace(s.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(s.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	if n, err := strconv.Atoi(s.ID); err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidID, s.ID)
	}
	return nil
}

// Details returns the multi-line description shown by "student info".
func (s Student) Details() string {
	face := "No"
	if s.HasFace() {
		face = "Yes"
	}
	return fmt.Sprintf("ID: %s\nName: %s\nEmail: %s\nPhone: %s\nCourse: %s\nYear: %s\nFace Image: %s",
		s.ID, s.Name, s.Email, s.Phone, s.Course, s.Year, face)
}
