package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halwest/tapline/internal/engine"
	"github.com/halwest/tapline/internal/harness"
)

// RunResult is the JSON payload for the run command.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Passed   bool                 `json:"passed"`
	Steps    int                  `json:"steps"`
	Failures []string             `json:"failures,omitempty"`
	Trace    []harness.TraceEntry `json:"trace,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a scenario and check its assertions",
		Long: `Execute a scenario file: build the declared timeline history, dispatch
its queries, and evaluate its assertions against the final engine state.

Exits 1 when any assertion fails, 2 when the scenario cannot be loaded
or its history cannot be built.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], showTrace, cmd)
		},
	}

	cmd.Flags().BoolVar(&showTrace, "trace", false, "include the query trace in output")

	return cmd
}

func runScenario(opts *RootOptions, path string, showTrace bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		formatter.Error("SCENARIO_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded scenario %q (%d events, %d queries)",
		scenario.Name, len(scenario.Events), len(scenario.Queries))

	engineOpts, err := engineOptions(opts)
	if err != nil {
		formatter.Error("CONFIG_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	result, err := harness.RunWith(engine.New(engineOpts...), scenario)
	if err != nil {
		formatter.Error("SCENARIO_RUN", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	payload := RunResult{
		Scenario: result.ScenarioName,
		Passed:   result.Passed(),
		Steps:    len(result.Trace),
		Failures: result.Failures,
	}
	if showTrace {
		payload.Trace = result.Trace
	}

	lines := []string{fmt.Sprintf("Scenario %q: %d steps", result.ScenarioName, len(result.Trace))}
	if result.Passed() {
		lines = append(lines, "PASS")
	} else {
		for _, failure := range result.Failures {
			lines = append(lines, "FAIL: "+failure)
		}
	}
	if err := formatter.SuccessText(payload, lines...); err != nil {
		return err
	}

	if !result.Passed() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Failures)))
	}
	return nil
}
