// Package constants provides shared constants used across the codebase.
package constants

import "time"

// File upload constants
const (
	// MaxUploadSize is the maximum reference photo upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)

// Session constants
const (
	// SessionDuration is how long a login session stays valid
	SessionDuration = 24 * time.Hour

	// SessionCleanupInterval is how often expired sessions are purged
	SessionCleanupInterval = 15 * time.Minute
)

// Role names
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)
