package hmrc

import (
	"context"

	"kbv/internal/question/models"
	dErrors "kbv/pkg/domain-errors"
)

// QuestionsClient fetches candidate questions for a NINO.
type QuestionsClient struct {
	client
	url string
}

func NewQuestionsClient(url string, opts ...Option) *QuestionsClient {
	return &QuestionsClient{client: newClient(opts...), url: url}
}

type questionsRequest struct {
	NINO string `json:"nino"`
}

// FetchQuestions posts the NINO and returns the correlation id and questions.
func (c *QuestionsClient) FetchQuestions(ctx context.Context, bearer, nino string) (*models.QuestionSet, error) {
	var set models.QuestionSet
	if err := c.postJSON(ctx, endpointQuestions, c.url, bearer, questionsRequest{NINO: nino}, &set); err != nil {
		return nil, err
	}
	if set.CorrelationID == "" {
		return nil, dErrors.New(dErrors.CodeDependency, "questions response has no correlation id")
	}
	return &set, nil
}
