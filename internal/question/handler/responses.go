package handler

import "kbv/internal/question/models"

// RetrieveResponse carries the label the orchestrator branches on.
type RetrieveResponse struct {
	Outcome models.Outcome `json:"outcome"`
}

// SaveAnswerResponse echoes the answered question.
type SaveAnswerResponse struct {
	QuestionKey string `json:"questionKey,omitempty"`
}
