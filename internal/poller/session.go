package poller

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

// ErrAlreadyRunning is returned when starting a session while one is running.
var ErrAlreadyRunning = errors.New("camera session already running")

// Opener builds the poller configuration of a new session, opening the
// camera and the detector.
type Opener func() (Config, error)

// Session runs at most one poller at a time on behalf of the web API.
type Session struct {
	base context.Context
	open Opener

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   Status
	bc     broadcaster
}

// NewSession creates a stopped session. Pollers run until Stop or until base
// is cancelled.
func NewSession(base context.Context, open Opener) *Session {
	return &Session{
		base: base,
		open: open,
		last: Status{Message: "Camera: Off"},
	}
}

// Start opens the camera and starts polling.
func (s *Session) Start() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return s.last, ErrAlreadyRunning
	}

	cfg, err := s.open()
	if err != nil {
		return s.last, err
	}

	id := uuid.NewString()
	cfg.OnStatus = s.record
	p := New(cfg)
	p.sessionID = id

	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.last = Status{SessionID: id, Running: true, Message: "Camera: On - Detecting faces...", UpdatedAt: p.cfg.Now()}

	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			log.Printf("Camera session %s stopped: %v", id, err)
		}
		s.mu.Lock()
		if s.done == done {
			s.done = nil
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	return s.last, nil
}

// Stop stops the running poller and waits for the camera to be released.
// It reports false when nothing was running.
func (s *Session) Stop() (Status, bool) {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if done == nil {
		return s.Status(), false
	}
	cancel()
	<-done
	return s.Status(), true
}

// Status returns the last status of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Subscribe registers a status listener.
func (s *Session) Subscribe() chan Status {
	return s.bc.subscribe()
}

// Unsubscribe removes a status listener and closes it.
func (s *Session) Unsubscribe(ch chan Status) {
	s.bc.unsubscribe(ch)
}

func (s *Session) record(st Status) {
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
	s.bc.publish(st)
}
