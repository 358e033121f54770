package database

import (
	"time"
)

// StudentRecord is a roster entry mirrored to the database
type StudentRecord struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Course    string
	Year      string
	FaceImage string
	UpdatedAt time.Time
}

// EntryRecord is one student's status on one day
type EntryRecord struct {
	Date      string // YYYY-MM-DD
	StudentID string
	Present   bool
	Time      string // HH:MM:SS, empty when absent
	UpdatedAt time.Time
}

// StoredTemplate is the face template of a student's reference photo
type StoredTemplate struct {
	StudentID string
	Size      int       // template width and height
	Vector    []float32 // Size*Size values, mean-centred and unit length
	DHash     string    // hex difference hash of the reference photo
	UpdatedAt time.Time
}

// StoredSession is a web login session
type StoredSession struct {
	ID        string
	Username  string
	Role      string
	Name      string // display name of the user
	CreatedAt time.Time
	ExpiresAt time.Time
}
