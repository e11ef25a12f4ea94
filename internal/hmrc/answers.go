package hmrc

import (
	"context"

	"kbv/internal/answer/models"
)

// AnswersClient submits a complete answer set for scoring.
type AnswersClient struct {
	client
	url string
}

func NewAnswersClient(url string, opts ...Option) *AnswersClient {
	return &AnswersClient{client: newClient(opts...), url: url}
}

type answersRequest struct {
	CorrelationID string                   `json:"correlationId"`
	Selection     selection                `json:"selection"`
	Answers       []models.SubmittedAnswer `json:"answers"`
}

type selection struct {
	NINO string `json:"nino"`
}

// VerifyAnswers returns the verifier's per-question scores.
func (c *AnswersClient) VerifyAnswers(ctx context.Context, bearer string, req models.VerifyRequest) ([]models.AnswerResult, error) {
	body := answersRequest{
		CorrelationID: req.CorrelationID,
		Selection:     selection{NINO: req.NINO},
		Answers:       req.Answers,
	}
	var results []models.AnswerResult
	if err := c.postJSON(ctx, endpointAnswers, c.url, bearer, body, &results); err != nil {
		return nil, err
	}
	return results, nil
}
