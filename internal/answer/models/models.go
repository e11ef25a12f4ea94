package models

import "time"

// Score is the verifier's verdict on one answer.
type Score string

const (
	ScoreCorrect   Score = "correct"
	ScoreIncorrect Score = "incorrect"
)

// ContraIndicatorFailedKBV is attached when too few answers are correct.
const ContraIndicatorFailedKBV = "V03"

const (
	// passThreshold is the number of correct answers that verifies a subject.
	passThreshold = 2
	// ScorePass is the verification score for a verified subject.
	ScorePass = 2
	ScoreFail = 0
)

// SubmittedAnswer is one answer forwarded to the verifier.
type SubmittedAnswer struct {
	QuestionKey string `json:"questionKey"`
	Value       string `json:"value"`
}

// VerifyRequest is one complete answer set.
type VerifyRequest struct {
	CorrelationID string
	NINO          string
	Answers       []SubmittedAnswer
}

// AnswerResult is the verifier's response for one question.
type AnswerResult struct {
	QuestionKey string `json:"questionKey"`
	Score       Score  `json:"score"`
}

// AnswerStatus is a persisted per-question result.
type AnswerStatus struct {
	QuestionKey string `json:"questionKey"`
	Status      Score  `json:"status"`
}

// AnswerResultItem is the single, immutable scored outcome for a session.
type AnswerResultItem struct {
	SessionID               string         `json:"sessionId"`
	CorrelationID           string         `json:"correlationId"`
	ExpiresAt               time.Time      `json:"expiresAt"`
	Answers                 []AnswerStatus `json:"answers"`
	VerificationScore       int            `json:"verificationScore"`
	CheckDetailsCount       *int           `json:"checkDetailsCount,omitempty"`
	FailedCheckDetailsCount *int           `json:"failedCheckDetailsCount,omitempty"`
	ContraIndicators        []string       `json:"contraIndicators,omitempty"`
}

// Tally counts correct and incorrect results.
type Tally struct {
	Correct   int
	Incorrect int
}

// Total is the number of answers scored.
func (t Tally) Total() int {
	return t.Correct + t.Incorrect
}

// Count tallies results. Any verdict other than "correct" is incorrect.
func Count(results []AnswerResult) Tally {
	var t Tally
	for _, r := range results {
		if r.Score == ScoreCorrect {
			t.Correct++
		} else {
			t.Incorrect++
		}
	}
	return t
}

// VerificationScore is 2 when at least two answers are correct, else 0.
func (t Tally) VerificationScore() int {
	if t.Correct >= passThreshold {
		return ScorePass
	}
	return ScoreFail
}

// ContraIndicators returns the contra-indicator codes for the tally: V03 when
// the subject failed, none otherwise.
func (t Tally) ContraIndicators() []string {
	if t.Correct < passThreshold {
		return []string{ContraIndicatorFailedKBV}
	}
	return nil
}

// NewAnswerResultItem scores results into the persisted record. Counts are
// kept only when non-zero.
func NewAnswerResultItem(sessionID, correlationID string, expiresAt time.Time, results []AnswerResult) *AnswerResultItem {
	tally := Count(results)
	answers := make([]AnswerStatus, 0, len(results))
	for _, r := range results {
		status := ScoreIncorrect
		if r.Score == ScoreCorrect {
			status = ScoreCorrect
		}
		answers = append(answers, AnswerStatus{QuestionKey: r.QuestionKey, Status: status})
	}
	return &AnswerResultItem{
		SessionID:               sessionID,
		CorrelationID:           correlationID,
		ExpiresAt:               expiresAt,
		Answers:                 answers,
		VerificationScore:       tally.VerificationScore(),
		CheckDetailsCount:       positive(tally.Correct),
		FailedCheckDetailsCount: positive(tally.Incorrect),
		ContraIndicators:        tally.ContraIndicators(),
	}
}

// Tally recounts the persisted statuses.
func (i *AnswerResultItem) Tally() Tally {
	var t Tally
	for _, a := range i.Answers {
		if a.Status == ScoreCorrect {
			t.Correct++
		} else {
			t.Incorrect++
		}
	}
	return t
}

// Checks returns the check-detail count, zero when absent.
func (i *AnswerResultItem) Checks() int {
	return deref(i.CheckDetailsCount)
}

// FailedChecks returns the failed-check-detail count, zero when absent.
func (i *AnswerResultItem) FailedChecks() int {
	return deref(i.FailedCheckDetailsCount)
}

func positive(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
