package pdfrender

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of a render session.
type State int

const (
	StateIdle State = iota
	StateRendering
	StateEmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateEmitted:
		return "emitted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateEmitted || s == StateFailed
}

// session enforces Idle -> Rendering -> Emitted | Failed.
type session struct {
	mu       sync.Mutex
	state    State
	observer func(from, to State)
}

func newSession(observer func(from, to State)) *session {
	return &session{state: StateIdle, observer: observer}
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	ok := (from == StateIdle && to == StateRendering) ||
		(from == StateRendering && to.Terminal())
	if ok {
		s.state = to
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("invalid session transition %s -> %s", from, to)
	}
	if s.observer != nil {
		s.observer(from, to)
	}
	return nil
}

// fail moves a non-terminal session to Failed. It is a no-op once the
// session has finished.
func (s *session) fail() {
	s.mu.Lock()
	from := s.state
	if from.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(from, StateFailed)
	}
}
