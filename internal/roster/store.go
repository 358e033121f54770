package roster

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/jsonstore"
	"github.com/kozaktomas/attendance/internal/tally"
)

// Store keeps students in one JSON document keyed by student ID.
// Reference photos live in the Images directory next to it.
type Store struct {
	path     string
	dataDir  string
	students map[string]*Student
}

// Open loads the students document, creating an empty one on first run.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		dataDir: filepath.Dir(path),
	}
	_, err := jsonstore.LoadOrSeed(path, &s.students, func() {
		s.students = make(map[string]*Student)
	})
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	if s.students == nil {
		s.students = make(map[string]*Student)
	}
	for id, st := range s.students {
		if st == nil {
			st = &Student{}
			s.students[id] = st
		}
		st.ID = id
	}
	return s, nil
}

func (s *Store) save() error {
	if err := jsonstore.Save(s.path, s.students); err != nil {
		return fmt.Errorf("save students: %w", err)
	}
	return nil
}

// Add validates and stores a new student.
func (s *Store) Add(st Student) error {
	st.ID = strings.TrimSpace(st.ID)
	if err := st.Validate(); err != nil {
		return err
	}
	if _, ok := s.students[st.ID]; ok {
		return fmt.Errorf("add %s: %w", st.ID, ErrStudentExists)
	}

	s.students[st.ID] = &st
	if err := s.save(); err != nil {
		delete(s.students, st.ID)
		return err
	}
	return nil
}

// Remove deletes a student and their reference photo.
func (s *Store) Remove(id string) (Student, error) {
	st, ok := s.students[id]
	if !ok {
		return Student{}, fmt.Errorf("remove %s: %w", id, ErrStudentNotFound)
	}

	delete(s.students, id)
	if err := s.save(); err != nil {
		s.students[id] = st
		return Student{}, err
	}
	if st.HasFace() {
		// best effort, the record is already gone
		_ = os.Remove(s.FacePath(*st))
	}
	return *st, nil
}

// Get returns a copy of the student with the given ID.
func (s *Store) Get(id string) (Student, bool) {
	st, ok := s.students[id]
	if !ok {
		return Student{}, false
	}
	return *st, true
}

// Has reports whether id is enrolled.
func (s *Store) Has(id string) bool {
	_, ok := s.students[id]
	return ok
}

// Len returns the number of students.
func (s *Store) Len() int {
	return len(s.students)
}

// IDs returns all student IDs in numeric order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.students))
	for id := range s.students {
		ids = append(ids, id)
	}
	tally.SortIDs(ids)
	return ids
}

// List returns copies of all students in ID order.
func (s *Store) List() []Student {
	ids := s.IDs()
	list := make([]Student, len(ids))
	for i, id := range ids {
		list[i] = *s.students[id]
	}
	return list
}

// FindByName returns students whose normalized name contains the normalized query.
func (s *Store) FindByName(query string) []Student {
	q := NormalizeName(query)
	if q == "" {
		return nil
	}
	var found []Student
	for _, st := range s.List() {
		if strings.Contains(NormalizeName(st.Name), q) {
			found = append(found, st)
		}
	}
	return found
}

// SaveFace writes a reference photo to Images/<id><ext> and records it on the student.
func (s *Store) SaveFace(id string, data []byte, ext string) (Student, error) {
	st, ok := s.students[id]
	if !ok {
		return Student{}, fmt.Errorf("enroll %s: %w", id, ErrStudentNotFound)
	}
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	imagesDir := filepath.Join(s.dataDir, constants.ImagesDir)
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return Student{}, fmt.Errorf("create images directory: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(constants.ImagesDir, id+strings.ToLower(ext)))
	if err := os.WriteFile(filepath.Join(s.dataDir, rel), data, 0o644); err != nil {
		return Student{}, fmt.Errorf("save face image: %w", err)
	}

	prev := st.FaceImage
	st.FaceImage = rel
	if err := s.save(); err != nil {
		st.FaceImage = prev
		return Student{}, err
	}
	if prev != "" && prev != rel {
		_ = os.Remove(filepath.Join(s.dataDir, filepath.FromSlash(prev)))
	}
	return *st, nil
}

// FacePath resolves a student's reference photo to a filesystem path.
func (s *Store) FacePath(st Student) string {
	if st.FaceImage == "" {
		return ""
	}
	p := filepath.FromSlash(st.FaceImage)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dataDir, p)
}
