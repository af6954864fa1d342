package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/halwest/tapline/internal/temporal"
)

// RunWithGolden executes a scenario and compares its query trace against
// the golden file named after the scenario. The trace is rendered through
// canonical JSON so byte comparison is meaningful.
//
// Returns an error if the run itself fails; assertion failures surface as
// test failures, golden mismatches surface via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, failure := range result.Failures {
		t.Error(failure)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result's trace against the
// golden file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	raw, err := temporal.MarshalCanonical(traceSnapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, raw)
	return nil
}

func traceSnapshot(scenarioName string, result *Result) map[string]any {
	trace := make([]any, len(result.Trace))
	for i, entry := range result.Trace {
		trace[i] = map[string]any{
			"step":     entry.Step,
			"request":  entry.Request,
			"response": entry.Response,
		}
	}
	return map[string]any{
		"scenario": scenarioName,
		"trace":    trace,
	}
}
