package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sort"
	"strings"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/fingerprint"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/kozaktomas/attendance/internal/vision"
)

// Enrollment is the outcome of storing a reference photo.
type Enrollment struct {
	Student roster.Student `json:"student"`
	// Enrolled is false when the photo was stored but cannot be matched against.
	Enrolled bool `json:"enrolled"`
	// Duplicates lists other students whose reference photo looks the same.
	Duplicates []string `json:"duplicates,omitempty"`
}

// MarkTally increments the counter of a tally id.
func (s *Service) MarkTally(ctx context.Context, id string) (tally.Entry, error) {
	return call(ctx, s, func() (tally.Entry, error) {
		rec, err := s.tally.Mark(id)
		if err != nil {
			return tally.Entry{}, err
		}
		s.notifier.Publish(Notification{
			StudentID: id,
			Name:      rec.Name,
			Status:    constants.StatusPresent,
			Time:      rec.LastAttendance,
		})
		return tally.Entry{
			ID:              id,
			Name:            rec.Name,
			TotalAttendance: rec.TotalAttendance,
			LastAttendance:  rec.LastAttendance,
		}, nil
	})
}

// TallyRecords returns the tally in id order.
func (s *Service) TallyRecords(ctx context.Context) ([]tally.Entry, error) {
	return call(ctx, s, func() ([]tally.Entry, error) {
		return s.tally.Entries(), nil
	})
}

// AddStudent adds a student and, when face is not empty, their reference photo.
// A photo that cannot be decoded or stored rejects the whole request.
func (s *Service) AddStudent(ctx context.Context, st roster.Student, face []byte) (Enrollment, error) {
	st.ID = strings.TrimSpace(st.ID)
	return call(ctx, s, func() (Enrollment, error) {
		var ref reference
		if len(face) > 0 {
			var err error
			if ref, err = prepareReference(face); err != nil {
				return Enrollment{}, err
			}
		}

		if err := s.roster.Add(st); err != nil {
			return Enrollment{}, err
		}
		if ref.img == nil {
			added, _ := s.roster.Get(st.ID)
			s.mirrorWrite("add student", func(ctx context.Context, m database.Mirror) error {
				return m.SaveStudent(ctx, studentRecord(added))
			})
			return Enrollment{Student: added}, nil
		}

		res, err := s.enroll(st.ID, ref)
		if err != nil {
			if _, rerr := s.roster.Remove(st.ID); rerr != nil {
				log.Printf("Warning: rolling back student %s: %v", st.ID, rerr)
			}
			return Enrollment{}, err
		}
		return res, nil
	})
}

// EnrollFace stores a new reference photo for an existing student.
func (s *Service) EnrollFace(ctx context.Context, id string, face []byte) (Enrollment, error) {
	return call(ctx, s, func() (Enrollment, error) {
		if !s.roster.Has(id) {
			return Enrollment{}, fmt.Errorf("enroll %s: %w", id, roster.ErrStudentNotFound)
		}
		ref, err := prepareReference(face)
		if err != nil {
			return Enrollment{}, err
		}
		return s.enroll(id, ref)
	})
}

// reference is a decoded photo with its downscaled JPEG encoding.
type reference struct {
	img  image.Image
	jpeg []byte
}

func prepareReference(face []byte) (reference, error) {
	img, err := decodeReference(face)
	if err != nil {
		return reference{}, err
	}
	data, err := fingerprint.EncodeJPEG(img, constants.ReferenceMaxSize)
	if err != nil {
		return reference{}, fmt.Errorf("encode reference photo: %w", err)
	}
	return reference{img: img, jpeg: data}, nil
}

// enroll stores the photo and adds it to the gallery.
func (s *Service) enroll(id string, ref reference) (Enrollment, error) {
	img := ref.img
	st, err := s.roster.SaveFace(id, ref.jpeg, ".jpg")
	if err != nil {
		return Enrollment{}, err
	}
	s.mirrorWrite("save student", func(ctx context.Context, m database.Mirror) error {
		return m.SaveStudent(ctx, studentRecord(st))
	})

	res := Enrollment{Student: st}
	hash := fingerprint.DHash(img)
	for other, h := range s.hashes {
		if other != id && fingerprint.Similar(hash, h, constants.DuplicatePhotoDistance) {
			res.Duplicates = append(res.Duplicates, other)
		}
	}
	sort.Strings(res.Duplicates)
	// flat photos keep their hash so duplicates of them are still reported
	s.hashes[id] = hash

	if s.gallery == nil {
		return res, nil
	}
	t, err := s.gallery.Enroll(id, img)
	if errors.Is(err, vision.ErrFlatImage) {
		log.Printf("Warning: reference photo of %s has no contrast, it will never match", id)
		s.templateWrite("delete", func(ctx context.Context, ts database.TemplateStore) error {
			return ts.DeleteTemplate(ctx, id)
		})
		return res, nil
	}
	if err != nil {
		return Enrollment{}, err
	}
	res.Enrolled = true

	s.templateWrite("save", func(ctx context.Context, ts database.TemplateStore) error {
		return ts.SaveTemplate(ctx, database.StoredTemplate{
			StudentID: id,
			Size:      t.Size,
			Vector:    t.Vector,
			DHash:     fingerprint.FormatHash(hash),
		})
	})
	return res, nil
}

// Students returns the roster in id order.
func (s *Service) Students(ctx context.Context) ([]roster.Student, error) {
	return call(ctx, s, func() ([]roster.Student, error) {
		return s.roster.List(), nil
	})
}

// Student returns one student.
func (s *Service) Student(ctx context.Context, id string) (roster.Student, error) {
	return call(ctx, s, func() (roster.Student, error) {
		st, ok := s.roster.Get(id)
		if !ok {
			return roster.Student{}, fmt.Errorf("student %s: %w", id, roster.ErrStudentNotFound)
		}
		return st, nil
	})
}

// FindStudents matches names ignoring case and diacritics.
func (s *Service) FindStudents(ctx context.Context, query string) ([]roster.Student, error) {
	return call(ctx, s, func() ([]roster.Student, error) {
		return s.roster.FindByName(query), nil
	})
}

// RemoveStudent removes a student with their reference photo. Register
// entries of the student are kept.
func (s *Service) RemoveStudent(ctx context.Context, id string) (roster.Student, error) {
	return call(ctx, s, func() (roster.Student, error) {
		st, err := s.roster.Remove(id)
		if err != nil {
			return roster.Student{}, err
		}
		delete(s.hashes, id)
		if s.gallery != nil {
			s.gallery.Remove(id)
		}
		s.mirrorWrite("delete student", func(ctx context.Context, m database.Mirror) error {
			return m.DeleteStudent(ctx, id)
		})
		s.templateWrite("delete", func(ctx context.Context, ts database.TemplateStore) error {
			return ts.DeleteTemplate(ctx, id)
		})
		return st, nil
	})
}

func decodeReference(data []byte) (image.Image, error) {
	img, err := fingerprint.Decode(data)
	if err != nil {
		return nil, wrapImageErr(err)
	}
	return img, nil
}
