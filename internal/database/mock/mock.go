// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// MockMirror is an in-memory implementation of database.Mirror and database.RegisterReader
type MockMirror struct {
	mu       sync.RWMutex
	students map[string]database.StudentRecord
	entries  map[string]map[string]database.EntryRecord // date -> student -> entry
	calls    int

	// Error injection
	SaveStudentError   error
	DeleteStudentError error
	SaveEntryError     error
	DeleteDayError     error
	DeleteAllError     error
}

// NewMockMirror creates a new mock mirror
func NewMockMirror() *MockMirror {
	return &MockMirror{
		students: make(map[string]database.StudentRecord),
		entries:  make(map[string]map[string]database.EntryRecord),
	}
}

// Calls returns the number of write calls received, including failed ones
func (m *MockMirror) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func (m *MockMirror) SaveStudent(_ context.Context, s database.StudentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.SaveStudentError != nil {
		return m.SaveStudentError
	}
	m.students[s.ID] = s
	return nil
}

func (m *MockMirror) DeleteStudent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.DeleteStudentError != nil {
		return m.DeleteStudentError
	}
	delete(m.students, id)
	return nil
}

func (m *MockMirror) SaveEntry(_ context.Context, e database.EntryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.SaveEntryError != nil {
		return m.SaveEntryError
	}
	day, ok := m.entries[e.Date]
	if !ok {
		day = make(map[string]database.EntryRecord)
		m.entries[e.Date] = day
	}
	day[e.StudentID] = e
	return nil
}

func (m *MockMirror) DeleteDay(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.DeleteDayError != nil {
		return m.DeleteDayError
	}
	delete(m.entries, date)
	return nil
}

func (m *MockMirror) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.DeleteAllError != nil {
		return m.DeleteAllError
	}
	m.entries = make(map[string]map[string]database.EntryRecord)
	return nil
}

// ListStudents returns all students ordered by ID
func (m *MockMirror) ListStudents(_ context.Context) ([]database.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]database.StudentRecord, 0, len(m.students))
	for _, s := range m.students {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// ListEntries returns the entries of a date ordered by student ID
func (m *MockMirror) ListEntries(_ context.Context, date string) ([]database.EntryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]database.EntryRecord, 0, len(m.entries[date]))
	for _, e := range m.entries[date] {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StudentID < list[j].StudentID })
	return list, nil
}

// CountEntries returns the number of stored entries
func (m *MockMirror) CountEntries(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, day := range m.entries {
		n += len(day)
	}
	return n, nil
}

// MockTemplateStore is an in-memory implementation of database.TemplateStore
type MockTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]database.StoredTemplate

	// Error injection
	SaveError error
	FindError error
}

// NewMockTemplateStore creates a new mock template store
func NewMockTemplateStore() *MockTemplateStore {
	return &MockTemplateStore{
		templates: make(map[string]database.StoredTemplate),
	}
}

func (m *MockTemplateStore) SaveTemplate(_ context.Context, t database.StoredTemplate) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.StudentID] = t
	return nil
}

func (m *MockTemplateStore) DeleteTemplate(_ context.Context, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, studentID)
	return nil
}

// FindSimilarTemplates ranks every stored template by exact cosine distance
func (m *MockTemplateStore) FindSimilarTemplates(_ context.Context, vector []float32, limit int) ([]database.StoredTemplate, []float64, error) {
	if m.FindError != nil {
		return nil, nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		t database.StoredTemplate
		d float64
	}
	all := make([]scored, 0, len(m.templates))
	for _, t := range m.templates {
		all = append(all, scored{t: t, d: database.CosineDistance(vector, t.Vector)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].d != all[j].d {
			return all[i].d < all[j].d
		}
		return all[i].t.StudentID < all[j].t.StudentID
	})
	if len(all) > limit {
		all = all[:limit]
	}

	templates := make([]database.StoredTemplate, len(all))
	distances := make([]float64, len(all))
	for i, s := range all {
		templates[i] = s.t
		distances[i] = s.d
	}
	return templates, distances, nil
}

func (m *MockTemplateStore) CountTemplates(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates), nil
}

// MockSessionStore is an in-memory implementation of database.SessionStore
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]database.StoredSession
	now      func() time.Time
}

// NewMockSessionStore creates a new mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]database.StoredSession),
		now:      time.Now,
	}
}

func (m *MockSessionStore) Save(_ context.Context, s database.StoredSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MockSessionStore) Get(_ context.Context, id string) (*database.StoredSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(m.now()) {
		return nil, nil
	}
	return &s, nil
}

func (m *MockSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(m.now()) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Compile-time interface checks
var (
	_ database.Mirror         = (*MockMirror)(nil)
	_ database.RegisterReader = (*MockMirror)(nil)
	_ database.TemplateStore  = (*MockTemplateStore)(nil)
	_ database.SessionStore   = (*MockSessionStore)(nil)
)
