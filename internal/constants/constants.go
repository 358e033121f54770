// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// File names inside the data directory
const (
	TallyFile    = "attendance_data.json"
	StudentsFile = "students.json"
	RegisterFile = "attendance.json"
	UsersFile    = "users.json"
	ImagesDir    = "Images"
)

// Timestamp layouts
const (
	// TimestampLayout is used for the last-marked field of tally records
	TimestampLayout = "2006-01-02 15:04:05"

	// DateLayout keys the daily register
	DateLayout = "2006-01-02"

	// TimeLayout is the time-of-day stored next to a present flag
	TimeLayout = "15:04:05"
)

// Recognition constants
const (
	// DefaultMatchThreshold is the minimum correlation for a reference photo match.
	// Uncalibrated: kept from the first version of the tool.
	DefaultMatchThreshold = 0.6

	// DefaultTemplateSize is the width and height of grayscale face templates
	DefaultTemplateSize = 100

	// DefaultCooldown is the minimum time between two automatic marks
	DefaultCooldown = 3 * time.Second

	// GalleryCandidates is the number of HNSW neighbours re-scored exactly
	GalleryCandidates = 5

	// GalleryMaxNeighbors is the M parameter of the gallery graph
	GalleryMaxNeighbors = 16

	// DuplicatePhotoDistance is the max dHash distance for two reference photos to count as the same picture
	DuplicatePhotoDistance = 6

	// ReferenceMaxSize is the maximum dimension of stored reference photos
	ReferenceMaxSize = 640
)

// Poller constants
const (
	// ConsolePollInterval is used by the detection-only console poller
	ConsolePollInterval = time.Second

	// WatchPollInterval is used by auto-marking camera sessions
	WatchPollInterval = 500 * time.Millisecond

	// EventChannelBuffer is the buffer size of status and notification listeners
	EventChannelBuffer = 100
)

// Database constants
const (
	// MirrorTimeout bounds a single write-through to the database mirror
	MirrorTimeout = 5 * time.Second
)

// Attendance status labels, as they appear in reports and notifications
const (
	StatusPresent    = "Present"
	StatusAbsent     = "Absent"
	StatusIdentified = "Identified"
)

// Web constants
const (
	// SSEKeepAliveInterval is the period of keep-alive comments on event streams
	SSEKeepAliveInterval = 30 * time.Second
)
