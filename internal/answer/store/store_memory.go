package store

import (
	"context"
	"sync"

	"kbv/internal/answer/models"
	"kbv/pkg/platform/sentinel"
)

// InMemoryStore keeps answer results in process.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]*models.AnswerResultItem
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{results: make(map[string]*models.AnswerResultItem)}
}

func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*models.AnswerResultItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.results[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(item), nil
}

// Create stores item unless one already exists for the session.
func (s *InMemoryStore) Create(_ context.Context, item *models.AnswerResultItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[item.SessionID]; exists {
		return sentinel.ErrConflict
	}
	s.results[item.SessionID] = clone(item)
	return nil
}

func clone(item *models.AnswerResultItem) *models.AnswerResultItem {
	copied := *item
	copied.Answers = append([]models.AnswerStatus(nil), item.Answers...)
	if item.ContraIndicators != nil {
		copied.ContraIndicators = append([]string{}, item.ContraIndicators...)
	}
	copied.CheckDetailsCount = copyInt(item.CheckDetailsCount)
	copied.FailedCheckDetailsCount = copyInt(item.FailedCheckDetailsCount)
	return &copied
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
