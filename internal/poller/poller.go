// Package poller runs the camera loop: read a frame, detect faces and, in
// auto-mark mode, mark attendance for what it sees.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/vision"
)

// Stage names the step of a poll that failed.
type Stage string

// Poll stages.
const (
	StageFrame    Stage = "frame"
	StageDetect   Stage = "detect"
	StageIdentify Stage = "identify"
	StageMark     Stage = "mark"
)

// Failure is a failed poll step. Frame failures stop the loop, the others
// are reported and the loop goes on.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// MarshalJSON renders the failure as {"stage": ..., "error": ...}.
func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Stage Stage  `json:"stage"`
		Error string `json:"error"`
	}{f.Stage, f.Err.Error()})
}

// Status is the observable state of a poller.
type Status struct {
	SessionID  string    `json:"session_id,omitempty"`
	Running    bool      `json:"running"`
	Faces      int       `json:"faces"`
	Message    string    `json:"message"`
	LastMarked []string  `json:"last_marked,omitempty"`
	Failure    *Failure  `json:"failure,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Marker marks attendance when a face is seen.
type Marker interface {
	AutoMark(ctx context.Context, identified string) (attendance.AutoMarkResult, error)
}

// Identifier recognises the student in a frame.
type Identifier interface {
	Match(ctx context.Context, frame image.Image, regions []vision.Region) (attendance.Identification, bool, error)
}

// Config configures a Poller. Marker and Identifier are optional: without a
// Marker the poller only reports faces.
type Config struct {
	Source     vision.Source
	Detector   vision.Detector
	Interval   time.Duration
	Cooldown   time.Duration
	Marker     Marker
	Identifier Identifier

	// OnStatus is called after every status change. It must not block.
	OnStatus func(Status)
	Now      func() time.Time
}

// Poller polls one camera. Source and Detector are closed when Run returns.
type Poller struct {
	cfg       Config
	sessionID string
	lastMark  time.Time

	mu     sync.RWMutex
	status Status
	bc     broadcaster
}

// New creates a poller.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = constants.WatchPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	p := &Poller{cfg: cfg}
	p.status = Status{Message: "Camera: Off", UpdatedAt: cfg.Now()}
	return p
}

// Status returns the current status.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Subscribe registers a status listener.
func (p *Poller) Subscribe() chan Status {
	return p.bc.subscribe()
}

// Unsubscribe removes a status listener and closes it.
func (p *Poller) Unsubscribe(ch chan Status) {
	p.bc.unsubscribe(ch)
}

func (p *Poller) update(fn func(s *Status)) {
	p.mu.Lock()
	fn(&p.status)
	p.status.SessionID = p.sessionID
	p.status.UpdatedAt = p.cfg.Now()
	st := p.status
	p.mu.Unlock()

	p.bc.publish(st)
	if p.cfg.OnStatus != nil {
		p.cfg.OnStatus(st)
	}
}

// Run polls until ctx is cancelled or a frame cannot be read. It returns
// nil on cancellation and the frame *Failure otherwise.
func (p *Poller) Run(ctx context.Context) error {
	defer p.release()

	p.update(func(s *Status) {
		*s = Status{Running: true, Message: "Camera: On - Detecting faces..."}
	})

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if f := p.poll(ctx); f != nil {
			p.update(func(s *Status) {
				s.Running = false
				s.Faces = 0
				s.Failure = f
				s.Message = "Camera: Off - " + f.Error()
			})
			return f
		}

		select {
		case <-ctx.Done():
			p.update(func(s *Status) {
				s.Running = false
				s.Faces = 0
				s.Message = "Camera: Off"
			})
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) release() {
	if p.cfg.Source != nil {
		p.cfg.Source.Close()
	}
	if p.cfg.Detector != nil {
		p.cfg.Detector.Close()
	}
}

// poll runs one iteration. Only a frame failure is returned.
func (p *Poller) poll(ctx context.Context) *Failure {
	frame, err := p.cfg.Source.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &Failure{Stage: StageFrame, Err: err}
	}

	regions, err := p.cfg.Detector.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.update(func(s *Status) {
			s.Faces = 0
			s.Failure = &Failure{Stage: StageDetect, Err: err}
			s.Message = "Camera: On - Face detection error"
		})
		return nil
	}

	faces := len(regions)
	if faces == 0 {
		p.update(func(s *Status) {
			s.Faces = 0
			s.Failure = nil
			s.Message = "Camera: On - No faces detected"
		})
		return nil
	}

	message := fmt.Sprintf("Camera: On - %d face(s) detected!", faces)
	now := p.cfg.Now()
	if p.cfg.Marker == nil || (!p.lastMark.IsZero() && now.Sub(p.lastMark) <= p.cfg.Cooldown) {
		p.update(func(s *Status) {
			s.Faces = faces
			s.Failure = nil
			s.Message = message
		})
		return nil
	}
	p.lastMark = now

	marked, message, failure := p.mark(ctx, frame, regions, message)
	p.update(func(s *Status) {
		s.Faces = faces
		s.Failure = failure
		s.Message = message
		if len(marked) > 0 {
			s.LastMarked = marked
		}
	})
	return nil
}

// mark identifies the face when possible and marks attendance.
func (p *Poller) mark(ctx context.Context, frame image.Image, regions []vision.Region, message string) ([]string, string, *Failure) {
	var (
		who     attendance.Identification
		failure *Failure
	)
	if p.cfg.Identifier != nil {
		id, ok, err := p.cfg.Identifier.Match(ctx, frame, regions)
		switch {
		case err != nil:
			failure = &Failure{Stage: StageIdentify, Err: err}
		case ok:
			who = id
		}
	}

	res, err := p.cfg.Marker.AutoMark(ctx, who.StudentID)
	if err != nil {
		if errors.Is(err, attendance.ErrStopped) || ctx.Err() != nil {
			return nil, message, failure
		}
		return nil, message, &Failure{Stage: StageMark, Err: err}
	}

	switch {
	case len(res.Marked) == 0:
	case who.StudentID != "":
		message = fmt.Sprintf("%s identified and marked present!", who.Name)
	default:
		message = fmt.Sprintf("Auto-marked %d students as present!", len(res.Marked))
	}
	return res.Marked, message, failure
}

type broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Status
}

func (b *broadcaster) subscribe() chan Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Status, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *broadcaster) publish(st Status) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- st:
		default:
		}
	}
}
