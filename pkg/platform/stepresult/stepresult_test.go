package stepresult

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "kbv/pkg/domain-errors"
)

func TestFromError(t *testing.T) {
	t.Run("prefixes the component", func(t *testing.T) {
		f := FromError("QuestionRetrieval", dErrors.New(dErrors.CodeValidation, "missing nino"))
		assert.Equal(t, "QuestionRetrieval : missing nino", f.Error)
	})

	t.Run("hides internal causes", func(t *testing.T) {
		err := dErrors.Wrap(errors.New("pq: relation does not exist"), dErrors.CodeInternal, "failed to load questions")
		f := FromError("QuestionRetrieval", err)
		assert.Equal(t, "QuestionRetrieval : failed to load questions", f.Error)
	})

	t.Run("keeps dependency causes", func(t *testing.T) {
		err := dErrors.Wrap(errors.New("status 503"), dErrors.CodeDependency, "question source failed")
		f := FromError("QuestionRetrieval", err)
		assert.Equal(t, "QuestionRetrieval : question source failed: status 503", f.Error)
	})

	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "Signer : unknown error", FromError("Signer", nil).Error)
	})
}
