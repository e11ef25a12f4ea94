package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"kbv/internal/signing"
	platformstrings "kbv/pkg/platform/strings"
)

const auditPrefix = "IPV_HMRC_KBV_CRI_"

// RegisterSteps binds the journey steps to tc.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^a session "([^"]*)" for NINO "([^"]*)"$`, func(sessionID, nino string) error {
		tc.SeedSession(sessionID, nino)
		return nil
	})
	ctx.Step(`^the question source offers "([^"]*)"$`, func(keys string) error {
		tc.Offered = platformstrings.SplitList(keys)
		return nil
	})
	ctx.Step(`^the orchestrator retrieves questions$`, func() error {
		return tc.expectOK(tc.Do(http.MethodPost, "/question", nil))
	})
	ctx.Step(`^the retrieval outcome is "([^"]*)"$`, func(want string) error {
		var body struct {
			Outcome string `json:"outcome"`
		}
		if err := json.Unmarshal(tc.LastBody, &body); err != nil {
			return err
		}
		if body.Outcome != want {
			return fmt.Errorf("outcome %q, want %q", body.Outcome, want)
		}
		return nil
	})
	ctx.Step(`^the subject answers (\d+) questions correctly and (\d+) incorrectly$`, tc.answerQuestions)
	ctx.Step(`^there is no next question$`, func() error {
		if err := tc.Do(http.MethodGet, "/question", nil); err != nil {
			return err
		}
		if tc.LastResponse.StatusCode != http.StatusNoContent {
			return fmt.Errorf("status %d, want 204: %s", tc.LastResponse.StatusCode, tc.LastBody)
		}
		return nil
	})
	ctx.Step(`^the orchestrator submits the answers$`, func() error {
		return tc.expectOK(tc.Do(http.MethodPost, "/submit", nil))
	})
	ctx.Step(`^the verification score is (\d+)$`, func(want int) error {
		var body struct {
			VerificationScore *int `json:"verificationScore"`
		}
		if err := json.Unmarshal(tc.LastBody, &body); err != nil {
			return err
		}
		if body.VerificationScore == nil || *body.VerificationScore != want {
			return fmt.Errorf("unexpected submission result %s", tc.LastBody)
		}
		return nil
	})
	ctx.Step(`^the orchestrator issues the credential$`, func() error {
		return tc.expectOK(tc.Do(http.MethodPost, "/credential/issue", nil))
	})
	ctx.Step(`^the credential verifies with score (\d+) and no contra-indicators$`, func(want int) error {
		evidence, err := tc.evidence()
		if err != nil {
			return err
		}
		if score, _ := evidence["verificationScore"].(float64); int(score) != want {
			return fmt.Errorf("verificationScore %v, want %d", evidence["verificationScore"], want)
		}
		if ci, _ := evidence["ci"].([]any); len(ci) != 0 {
			return fmt.Errorf("unexpected contra-indicators %v", ci)
		}
		return nil
	})
	ctx.Step(`^the credential carries contra-indicator "([^"]*)"$`, func(code string) error {
		evidence, err := tc.evidence()
		if err != nil {
			return err
		}
		ci, _ := evidence["ci"].([]any)
		if len(ci) != 1 || ci[0] != code {
			return fmt.Errorf("ci %v, want [%s]", ci, code)
		}
		return nil
	})
	ctx.Step(`^the audit trail is "([^"]*)"$`, func(want string) error {
		got := make([]string, 0)
		for _, name := range tc.Sink.Names() {
			got = append(got, strings.TrimPrefix(name, auditPrefix))
		}
		if strings.Join(got, ",") != want {
			return fmt.Errorf("audit trail %v, want %s", got, want)
		}
		return nil
	})
	ctx.Step(`^the question source was called (\d+) times$`, func(want int) error {
		if got := int(tc.SourceCalls.Load()); got != want {
			return fmt.Errorf("question source called %d times, want %d", got, want)
		}
		return nil
	})

	ctx.After(func(c context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		tc.Close()
		return c, err
	})
}

func (tc *TestContext) answerQuestions(correct, incorrect int) error {
	for i := 0; i < correct+incorrect; i++ {
		if err := tc.Do(http.MethodGet, "/question", nil); err != nil {
			return err
		}
		if tc.LastResponse.StatusCode != http.StatusOK {
			return fmt.Errorf("question %d: status %d", i+1, tc.LastResponse.StatusCode)
		}
		var next struct {
			QuestionKey string `json:"questionKey"`
		}
		if err := json.Unmarshal(tc.LastBody, &next); err != nil {
			return err
		}
		value := "wrong"
		if i < correct {
			value = correctAnswer
		}
		err := tc.Do(http.MethodPost, "/answer", map[string]string{"questionKey": next.QuestionKey, "value": value})
		if err := tc.expectOK(err); err != nil {
			return err
		}
	}
	return nil
}

// evidence verifies the last issued JWT and returns its single evidence entry.
func (tc *TestContext) evidence() (map[string]any, error) {
	var body struct {
		JWT string `json:"jwt"`
	}
	if err := json.Unmarshal(tc.LastBody, &body); err != nil {
		return nil, err
	}
	claims, err := signing.Verify(body.JWT, tc.Signer.PublicKey())
	if err != nil {
		return nil, err
	}
	if claims["iss"] != issuer {
		return nil, fmt.Errorf("iss %v, want %s", claims["iss"], issuer)
	}
	vc, _ := claims["vc"].(map[string]any)
	list, _ := vc["evidence"].([]any)
	if len(list) != 1 {
		return nil, fmt.Errorf("expected one evidence entry, got %v", vc["evidence"])
	}
	evidence, _ := list[0].(map[string]any)
	return evidence, nil
}

func (tc *TestContext) expectOK(err error) error {
	if err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", tc.LastResponse.StatusCode, tc.LastBody)
	}
	return nil
}
