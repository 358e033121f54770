// Package attendance owns the attendance stores. Every read and mutation runs
// on the goroutine of Service.Run, so the stores need no locking.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/fingerprint"
	"github.com/kozaktomas/attendance/internal/register"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/tally"
	"github.com/kozaktomas/attendance/internal/vision"
)

var (
	// ErrStopped is returned by calls made after Run has returned.
	ErrStopped = errors.New("attendance service stopped")
	// ErrInvalidImage is returned for reference photos that cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
)

// Options wires the stores into a Service. Gallery, Mirror and Templates are optional.
type Options struct {
	Tally     *tally.Store
	Roster    *roster.Store
	Register  *register.Ledger
	Gallery   *vision.Gallery
	Mirror    database.Mirror
	Templates database.TemplateStore
}

// Service is the single writer of the tally, the roster and the register.
type Service struct {
	tally     *tally.Store
	roster    *roster.Store
	register  *register.Ledger
	gallery   *vision.Gallery
	mirror    database.Mirror
	templates database.TemplateStore

	hashes   map[string]uint64 // dHash of each enrolled reference photo
	notifier Notifier

	ops      chan func()
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a service over already opened stores and loads the reference
// photos of the roster into the gallery.
func New(opts Options) *Service {
	s := &Service{
		tally:     opts.Tally,
		roster:    opts.Roster,
		register:  opts.Register,
		gallery:   opts.Gallery,
		mirror:    opts.Mirror,
		templates: opts.Templates,
		hashes:    make(map[string]uint64),
		ops:       make(chan func()),
		stopped:   make(chan struct{}),
	}
	s.loadFaces()
	return s
}

// Open opens every store in the configured data directory.
func Open(cfg *config.Config) (*Service, error) {
	seed := make(map[string]string, len(cfg.Seed.Roster))
	for _, p := range cfg.Seed.Roster {
		seed[p.ID] = p.Name
	}

	t, err := tally.Open(cfg.Storage.TallyPath(), seed)
	if err != nil {
		return nil, err
	}
	r, err := roster.Open(cfg.Storage.StudentsPath())
	if err != nil {
		return nil, err
	}
	l, err := register.Open(cfg.Storage.RegisterPath())
	if err != nil {
		return nil, err
	}

	return New(Options{
		Tally:    t,
		Roster:   r,
		Register: l,
		Gallery:  vision.NewGallery(cfg.Recognition.TemplateSize, cfg.Recognition.Threshold),
	}), nil
}

// UseDatabase enables write-through to the database. Call before Run.
func (s *Service) UseDatabase(mirror database.Mirror, templates database.TemplateStore) {
	s.mirror = mirror
	s.templates = templates
}

// Gallery returns the identification gallery, nil when disabled.
func (s *Service) Gallery() *vision.Gallery {
	return s.gallery
}

// Notifications returns the notification fan-out.
func (s *Service) Notifications() *Notifier {
	return &s.notifier
}

// Run executes queued operations until ctx is cancelled. Call it once.
func (s *Service) Run(ctx context.Context) error {
	defer s.stopOnce.Do(func() { close(s.stopped) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-s.ops:
			op()
		}
	}
}

// call runs fn on the Run goroutine and waits for its result.
func call[T any](ctx context.Context, s *Service, fn func() (T, error)) (T, error) {
	var (
		res  T
		err  error
		zero T
	)
	done := make(chan struct{})
	op := func() {
		defer close(done)
		res, err = fn()
	}

	select {
	case s.ops <- op:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.stopped:
		return zero, ErrStopped
	}
	<-done
	return res, err
}

// loadFaces enrols every stored reference photo. Unreadable photos are skipped.
func (s *Service) loadFaces() {
	if s.gallery == nil || s.roster == nil {
		return
	}
	for _, st := range s.roster.List() {
		if !st.HasFace() {
			continue
		}
		data, err := os.ReadFile(s.roster.FacePath(st))
		if err != nil {
			log.Printf("Warning: reference photo of %s: %v", st.ID, err)
			continue
		}
		img, err := fingerprint.Decode(data)
		if err != nil {
			log.Printf("Warning: reference photo of %s: %v", st.ID, err)
			continue
		}
		// flat photos keep their hash for duplicate detection, as in enroll
		s.hashes[st.ID] = fingerprint.DHash(img)
		if _, err := s.gallery.Enroll(st.ID, img); errors.Is(err, vision.ErrFlatImage) {
			log.Printf("Warning: reference photo of %s has no contrast, it will never match", st.ID)
		} else if err != nil {
			log.Printf("Warning: reference photo of %s: %v", st.ID, err)
		}
	}
}

// mirrorWrite forwards a persisted change to the database. Failures are logged only.
func (s *Service) mirrorWrite(what string, fn func(ctx context.Context, m database.Mirror) error) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.MirrorTimeout)
	defer cancel()
	if err := fn(ctx, s.mirror); err != nil {
		log.Printf("Warning: mirror %s: %v", what, err)
	}
}

func (s *Service) templateWrite(what string, fn func(ctx context.Context, t database.TemplateStore) error) {
	if s.templates == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.MirrorTimeout)
	defer cancel()
	if err := fn(ctx, s.templates); err != nil {
		log.Printf("Warning: template store %s: %v", what, err)
	}
}

func studentRecord(st roster.Student) database.StudentRecord {
	return database.StudentRecord{
		ID:        st.ID,
		Name:      st.Name,
		Email:     st.Email,
		Phone:     st.Phone,
		Course:    st.Course,
		Year:      st.Year,
		FaceImage: st.FaceImage,
	}
}

func wrapImageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidImage, err)
}
