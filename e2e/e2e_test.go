package e2e

import (
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name: "kbv",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			tc, err := NewTestContext()
			if err != nil {
				t.Fatalf("start test context: %v", err)
			}
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature tests failed")
	}
}
