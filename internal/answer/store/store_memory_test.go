package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbv/internal/answer/models"
	"kbv/pkg/platform/sentinel"
)

func scored(sessionID string, scores ...models.Score) *models.AnswerResultItem {
	results := make([]models.AnswerResult, 0, len(scores))
	for i, sc := range scores {
		results = append(results, models.AnswerResult{QuestionKey: string(rune('a' + i)), Score: sc})
	}
	return models.NewAnswerResultItem(sessionID, "corr-"+sessionID, time.Now().Add(time.Hour), results)
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.Get(ctx, "s-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Create(ctx, scored("s-1", models.ScoreCorrect, models.ScoreIncorrect)))
	assert.ErrorIs(t, s.Create(ctx, scored("s-1", models.ScoreCorrect, models.ScoreCorrect)), sentinel.ErrConflict)

	got, err := s.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.ScoreFail, got.VerificationScore, "the first result is final")
	assert.Equal(t, []string{"V03"}, got.ContraIndicators)

	got.ContraIndicators[0] = "X"
	*got.CheckDetailsCount = 9
	fresh, err := s.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "V03", fresh.ContraIndicators[0], "returned items are copies")
	assert.Equal(t, 1, fresh.Checks())
}
