package memory

import (
	"context"
	"sync"

	audit "kbv/pkg/platform/audit"
)

// Sink keeps events in send order for tests and the in-process e2e suite.
type Sink struct {
	mu     sync.RWMutex
	events []audit.Event
	err    error
}

func New() *Sink {
	return &Sink{}
}

func (s *Sink) Send(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// FailWith makes every subsequent Send return err. Pass nil to recover.
func (s *Sink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Events returns a copy of everything sent so far.
func (s *Sink) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}

// Names returns the event names in send order.
func (s *Sink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.EventName)
	}
	return names
}

func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
