package store

import (
	"context"
	"sync"

	"kbv/internal/session/models"
	"kbv/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions and identities in process. Used by tests and
// the memory backend, where the upstream collaborator seeds it through Put.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*models.Session
	identities map[string]*models.PersonIdentity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[string]*models.Session),
		identities: make(map[string]*models.PersonIdentity),
	}
}

// Put seeds a session and its identity.
func (s *InMemoryStore) Put(session *models.Session, identity *models.PersonIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	if identity != nil {
		s.identities[session.SessionID] = identity
	}
}

func (s *InMemoryStore) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *InMemoryStore) GetPersonIdentity(_ context.Context, sessionID string) (*models.PersonIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *identity
	return &copied, nil
}
