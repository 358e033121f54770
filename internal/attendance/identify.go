package attendance

import (
	"context"
	"image"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/fingerprint"
	"github.com/kozaktomas/attendance/internal/vision"
)

// Identification is a student recognised in a frame.
type Identification struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
}

// Match looks a frame up in the gallery without announcing it.
func (s *Service) Match(ctx context.Context, frame image.Image, regions []vision.Region) (Identification, bool, error) {
	if s.gallery == nil {
		return Identification{}, false, nil
	}
	m, ok := s.gallery.Identify(frame, regions)
	if !ok {
		return Identification{Score: m.Score}, false, nil
	}
	return s.resolve(ctx, m.ID, m.Score)
}

// Identify matches a frame and publishes an Identified notification on success.
func (s *Service) Identify(ctx context.Context, frame image.Image, regions []vision.Region) (Identification, bool, error) {
	id, ok, err := s.Match(ctx, frame, regions)
	if ok {
		s.notifier.Publish(Notification{StudentID: id.StudentID, Name: id.Name, Status: constants.StatusIdentified})
	}
	return id, ok, err
}

// IdentifyStored matches a frame against the templates kept in the database
// instead of the in-memory gallery.
func (s *Service) IdentifyStored(ctx context.Context, frame image.Image, regions []vision.Region) (Identification, bool, error) {
	if s.templates == nil || s.gallery == nil {
		return Identification{}, false, database.ErrNotInitialized
	}

	probe := s.gallery.Probe(frame, regions)
	if probe.Flat {
		return Identification{}, false, nil
	}
	stored, _, err := s.templates.FindSimilarTemplates(ctx, probe.Vector, constants.GalleryCandidates)
	if err != nil {
		return Identification{}, false, err
	}

	best := vision.Match{Score: -2}
	for _, t := range stored {
		score := fingerprint.Correlation(probe, fingerprint.Template{Size: t.Size, Vector: t.Vector})
		if score > best.Score {
			best = vision.Match{ID: t.StudentID, Score: score}
		}
	}
	if best.ID == "" || best.Score <= s.gallery.Threshold() {
		return Identification{Score: max(best.Score, 0)}, false, nil
	}
	return s.resolve(ctx, best.ID, best.Score)
}

// resolve adds the student name. Students removed since enrolment do not match.
func (s *Service) resolve(ctx context.Context, id string, score float64) (Identification, bool, error) {
	name, err := call(ctx, s, func() (string, error) {
		st, ok := s.roster.Get(id)
		if !ok {
			return "", nil
		}
		return st.Name, nil
	})
	if err != nil || name == "" {
		return Identification{}, false, err
	}
	return Identification{StudentID: id, Name: name, Score: score}, true, nil
}
