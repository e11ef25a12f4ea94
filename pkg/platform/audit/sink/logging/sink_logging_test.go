package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "kbv/pkg/platform/audit"
)

func TestSend(t *testing.T) {
	var buf bytes.Buffer
	sink := New(slog.New(slog.NewJSONHandler(&buf, nil)))
	asked := 3

	err := sink.Send(context.Background(), audit.Event{
		EventName:   "IPV_HMRC_KBV_CRI_END",
		ComponentID: "https://review-k.example",
		User:        audit.User{SessionID: "s-1", GovukSigninJourneyID: "journey-s-1"},
		Restricted: &audit.Restricted{
			SocialSecurityRecord: []audit.PersonalNumber{{PersonalNumber: "AA000003D"}},
		},
		Extensions: &audit.Extensions{Outcome: "Authenticated", TotalQuestionsAsked: &asked},
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit event", line["msg"])
	assert.Equal(t, "IPV_HMRC_KBV_CRI_END", line["event_name"])
	assert.Equal(t, "s-1", line["session_id"])
	assert.Equal(t, "Authenticated", line["outcome"])
	assert.EqualValues(t, 3, line["questions_asked"])
	assert.NotContains(t, buf.String(), "AA000003D")
}
