package database

import (
	"context"
)

// Mirror receives every persisted roster and register change
type Mirror interface {
	// SaveStudent inserts or updates a student
	SaveStudent(ctx context.Context, s StudentRecord) error
	// DeleteStudent removes a student, their entries stay
	DeleteStudent(ctx context.Context, id string) error
	// SaveEntry inserts or updates one student's status on one day
	SaveEntry(ctx context.Context, e EntryRecord) error
	// DeleteDay removes all entries of a date
	DeleteDay(ctx context.Context, date string) error
	// DeleteAll removes every entry
	DeleteAll(ctx context.Context) error
}

// RegisterReader reads the mirrored register back
type RegisterReader interface {
	// ListStudents returns all students ordered by ID
	ListStudents(ctx context.Context) ([]StudentRecord, error)
	// ListEntries returns the entries of a date ordered by student ID
	ListEntries(ctx context.Context, date string) ([]EntryRecord, error)
	// CountEntries returns the number of stored entries
	CountEntries(ctx context.Context) (int, error)
}

// TemplateStore keeps face templates for identification in the database
type TemplateStore interface {
	// SaveTemplate inserts or replaces the template of a student
	SaveTemplate(ctx context.Context, t StoredTemplate) error
	// DeleteTemplate removes the template of a student
	DeleteTemplate(ctx context.Context, studentID string) error
	// FindSimilarTemplates returns the closest templates by cosine distance, nearest first
	FindSimilarTemplates(ctx context.Context, vector []float32, limit int) ([]StoredTemplate, []float64, error)
	// CountTemplates returns the number of stored templates
	CountTemplates(ctx context.Context) (int, error)
}

// SessionStore persists web sessions across restarts
type SessionStore interface {
	// Save stores or replaces a session
	Save(ctx context.Context, s StoredSession) error
	// Get returns a session, nil if not found or expired
	Get(ctx context.Context, id string) (*StoredSession, error)
	// Delete removes a session
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes expired sessions and returns the count deleted
	DeleteExpired(ctx context.Context) (int64, error)
}
