package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuestionResultItem(t *testing.T) {
	item := NewQuestionResultItem("s-1", "c-1", time.Now(), []Question{
		{QuestionKey: "a"}, {QuestionKey: "b"}, {QuestionKey: "c"},
	})

	for i, q := range item.Questions {
		assert.Equal(t, i, q.Order)
	}

	next, ok := item.NextUnanswered()
	assert.True(t, ok)
	assert.Equal(t, "a", next.QuestionKey)
	assert.False(t, item.AllAnswered())

	assert.True(t, item.MarkAnswered("a"))
	assert.True(t, item.MarkAnswered("b"))
	next, _ = item.NextUnanswered()
	assert.Equal(t, "c", next.QuestionKey)

	assert.True(t, item.MarkAnswered("c"))
	_, ok = item.NextUnanswered()
	assert.False(t, ok)
	assert.True(t, item.AllAnswered())
	assert.False(t, item.MarkAnswered("missing"))
}

func TestQuestionResultItem_Empty(t *testing.T) {
	item := NewQuestionResultItem("s-1", "c-1", time.Now(), nil)

	assert.True(t, item.IsEmpty())
	assert.False(t, item.AllAnswered())
	assert.NotNil(t, item.Questions)
	_, ok := item.NextUnanswered()
	assert.False(t, ok)
}
