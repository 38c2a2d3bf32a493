package settlement

import (
	"context"
	"sync"
)

// Session holds the latest settlement result of one operator view and
// arbitrates overlapping runs.
//
// Every Refresh takes a new generation and cancels the run it supersedes.
// When a run finishes it is only published if its generation is still the
// newest; otherwise it returns ErrStaleRun and changes nothing. A failed run
// records its error but leaves the last successful result visible.
type Session struct {
	runner *Runner

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	current    *Run
	lastErr    error
}

// NewSession creates a session over a runner.
func NewSession(runner *Runner) *Session {
	return &Session{runner: runner}
}

// Refresh runs q and publishes its result unless a newer Refresh started in
// the meantime.
func (s *Session) Refresh(ctx context.Context, q Query) (*Run, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	run, err := s.runner.Run(runCtx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil, ErrStaleRun
	}
	s.cancel = nil
	if err != nil {
		s.lastErr = err
		return nil, err
	}

	run.Generation = gen
	s.current = run
	s.lastErr = nil
	return run, nil
}

// Clear drops the published run and the last error. A run still in flight
// is cancelled and will return ErrStaleRun.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.generation++
	}
	s.current = nil
	s.lastErr = nil
}

// Current returns the last published run.
func (s *Session) Current() (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoResult
	}
	return s.current, nil
}

// LastError returns the error of the most recent finished run, nil when it
// succeeded.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Generation returns the newest generation handed out.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
