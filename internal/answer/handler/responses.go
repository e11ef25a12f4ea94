package handler

import "kbv/internal/answer/models"

// SubmitResponse is the scored outcome. An empty body means "not ready".
type SubmitResponse struct {
	VerificationScore       *int     `json:"verificationScore,omitempty"`
	CheckDetailsCount       *int     `json:"checkDetailsCount,omitempty"`
	FailedCheckDetailsCount *int     `json:"failedCheckDetailsCount,omitempty"`
	ContraIndicators        []string `json:"ci,omitempty"`
}

// FromItem maps a stored result to the response.
func FromItem(item *models.AnswerResultItem) SubmitResponse {
	if item == nil {
		return SubmitResponse{}
	}
	score := item.VerificationScore
	return SubmitResponse{
		VerificationScore:       &score,
		CheckDetailsCount:       item.CheckDetailsCount,
		FailedCheckDetailsCount: item.FailedCheckDetailsCount,
		ContraIndicators:        item.ContraIndicators,
	}
}
