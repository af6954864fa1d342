package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halwest/tapline/internal/engine"
	"github.com/halwest/tapline/internal/harness"
	"github.com/halwest/tapline/internal/tap"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "query <message.json>",
		Short: "Dispatch one TAP message and print the response",
		Long: `Validate a TAP message file against the schema and dispatch it.

By default the message runs against an empty engine holding only the main
timeline. Pass --scenario to build a timeline history first, then run the
message against it.

The response is printed as canonical JSON. Store-level failures (unknown
timeline, duplicate event) come back inside the response envelope and
exit 0; only unreadable input or schema violations fail the command.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], scenarioPath, cmd)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario YAML to build history from")

	return cmd
}

func runQuery(opts *RootOptions, messagePath, scenarioPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	raw, err := os.ReadFile(messagePath)
	if err != nil {
		formatter.Error("MESSAGE_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read message", err)
	}

	if err := tap.ValidateBytes(raw); err != nil {
		formatter.Error("INVALID_MESSAGE", err.Error(), nil)
		return WrapExitError(ExitFailure, "message failed schema validation", err)
	}

	eng, err := buildEngine(opts, scenarioPath, formatter)
	if err != nil {
		return err
	}

	out, err := tap.NewDispatcher(eng).DispatchRaw(context.Background(), raw)
	if err != nil {
		formatter.Error("DISPATCH", err.Error(), nil)
		return WrapExitError(ExitCommandError, "dispatch failed", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// buildEngine creates an engine from the global config, optionally loading
// a scenario's timeline history into it.
func buildEngine(opts *RootOptions, scenarioPath string, formatter *OutputFormatter) (*engine.Engine, error) {
	engineOpts, err := engineOptions(opts)
	if err != nil {
		formatter.Error("CONFIG_LOAD", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	eng := engine.New(engineOpts...)

	if scenarioPath == "" {
		return eng, nil
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		formatter.Error("SCENARIO_LOAD", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	// Queries and assertions are skipped here: only the declared history
	// (timelines, events, states, what-ifs) is loaded.
	history := &harness.Scenario{
		Name:        scenario.Name,
		Description: scenario.Description,
		CurrentTime: scenario.CurrentTime,
		Timelines:   scenario.Timelines,
		Events:      scenario.Events,
		States:      scenario.States,
		WhatIf:      scenario.WhatIf,
	}
	if _, err := harness.RunWith(eng, history); err != nil {
		formatter.Error("SCENARIO_RUN", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to build scenario history", err)
	}
	formatter.VerboseLog("Built history from scenario %q", scenario.Name)
	return eng, nil
}
