package handler

import (
	"strings"

	dErrors "kbv/pkg/domain-errors"
)

// SaveAnswerRequest is the POST /answer body.
type SaveAnswerRequest struct {
	QuestionKey string `json:"questionKey"`
	Value       string `json:"value"`
}

// Normalize trims surrounding whitespace.
func (r *SaveAnswerRequest) Normalize() {
	r.QuestionKey = strings.TrimSpace(r.QuestionKey)
	r.Value = strings.TrimSpace(r.Value)
}

// Validate checks required fields.
func (r *SaveAnswerRequest) Validate() error {
	if r.QuestionKey == "" {
		return dErrors.New(dErrors.CodeValidation, "questionKey is required")
	}
	if r.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "value is required")
	}
	return nil
}
