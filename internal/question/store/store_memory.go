package store

import (
	"context"
	"sort"
	"sync"

	"kbv/internal/question/models"
	"kbv/pkg/platform/sentinel"
)

// InMemoryStore keeps question results and saved answers in process.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]*models.QuestionResultItem
	answers map[string]map[string]models.SavedAnswer
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		results: make(map[string]*models.QuestionResultItem),
		answers: make(map[string]map[string]models.SavedAnswer),
	}
}

func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*models.QuestionResultItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.results[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneItem(item), nil
}

// Create stores item unless one already exists for the session.
func (s *InMemoryStore) Create(_ context.Context, item *models.QuestionResultItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[item.SessionID]; exists {
		return sentinel.ErrConflict
	}
	s.results[item.SessionID] = cloneItem(item)
	return nil
}

func (s *InMemoryStore) MarkAnswered(_ context.Context, sessionID, questionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.results[sessionID]
	if !ok || !item.MarkAnswered(questionKey) {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *InMemoryStore) SaveAnswer(_ context.Context, answer models.SavedAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySession, ok := s.answers[answer.SessionID]
	if !ok {
		bySession = make(map[string]models.SavedAnswer)
		s.answers[answer.SessionID] = bySession
	}
	bySession[answer.QuestionKey] = answer
	return nil
}

func (s *InMemoryStore) ListAnswers(_ context.Context, sessionID string) ([]models.SavedAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SavedAnswer, 0, len(s.answers[sessionID]))
	for _, a := range s.answers[sessionID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionKey < out[j].QuestionKey })
	return out, nil
}

func cloneItem(item *models.QuestionResultItem) *models.QuestionResultItem {
	copied := *item
	copied.Questions = append([]models.QuestionState(nil), item.Questions...)
	return &copied
}
