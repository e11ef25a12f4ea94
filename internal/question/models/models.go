package models

import "time"

// Info carries the tax years a question refers to.
type Info struct {
	CurrentTaxYear  string `json:"currentTaxYear,omitempty"`
	PreviousTaxYear string `json:"previousTaxYear,omitempty"`
}

// Question is a value object produced by the question source. It has no
// identity beyond its key.
type Question struct {
	QuestionKey string `json:"questionKey"`
	Info        *Info  `json:"info,omitempty"`
}

// QuestionSet is a question source response.
type QuestionSet struct {
	CorrelationID string     `json:"correlationId"`
	Questions     []Question `json:"questions"`
}

// QuestionState is a persisted question with its presentation order and
// answered flag.
type QuestionState struct {
	QuestionKey string `json:"questionKey"`
	Info        *Info  `json:"info,omitempty"`
	Answered    bool   `json:"answered"`
	Order       int    `json:"order"`
}

// QuestionResultItem is the single per-session record of retrieved questions.
// Once created it is never re-created; only Answered flags change.
type QuestionResultItem struct {
	SessionID     string          `json:"sessionId"`
	CorrelationID string          `json:"correlationId"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	Questions     []QuestionState `json:"questions"`
}

// NewQuestionResultItem numbers questions contiguously from 0 in the given order.
func NewQuestionResultItem(sessionID, correlationID string, expiresAt time.Time, questions []Question) *QuestionResultItem {
	states := make([]QuestionState, 0, len(questions))
	for i, q := range questions {
		states = append(states, QuestionState{
			QuestionKey: q.QuestionKey,
			Info:        q.Info,
			Order:       i,
		})
	}
	return &QuestionResultItem{
		SessionID:     sessionID,
		CorrelationID: correlationID,
		ExpiresAt:     expiresAt,
		Questions:     states,
	}
}

// IsEmpty reports the insufficient-evidence record.
func (i *QuestionResultItem) IsEmpty() bool {
	return len(i.Questions) == 0
}

// NextUnanswered returns the unanswered question with the lowest order.
func (i *QuestionResultItem) NextUnanswered() (QuestionState, bool) {
	var next QuestionState
	found := false
	for _, q := range i.Questions {
		if q.Answered {
			continue
		}
		if !found || q.Order < next.Order {
			next = q
			found = true
		}
	}
	return next, found
}

// AllAnswered reports whether every question has been answered. An empty
// record is never "all answered".
func (i *QuestionResultItem) AllAnswered() bool {
	if i.IsEmpty() {
		return false
	}
	for _, q := range i.Questions {
		if !q.Answered {
			return false
		}
	}
	return true
}

// MarkAnswered flips the flag for key and reports whether it was found.
func (i *QuestionResultItem) MarkAnswered(key string) bool {
	for idx := range i.Questions {
		if i.Questions[idx].QuestionKey == key {
			i.Questions[idx].Answered = true
			return true
		}
	}
	return false
}

// SavedAnswer is a submitted answer waiting for the complete answer set.
type SavedAnswer struct {
	SessionID   string    `json:"sessionId"`
	QuestionKey string    `json:"questionKey"`
	Value       string    `json:"value"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Outcome is the retrieval result the orchestrator branches on.
type Outcome string

const (
	OutcomeSufficient       Outcome = "SufficientQuestions"
	OutcomeAlreadyRetrieved Outcome = "ContinueSufficientQuestionsAlreadyRetrieved"
	OutcomeInsufficient     Outcome = "InsufficientQuestions"
)
