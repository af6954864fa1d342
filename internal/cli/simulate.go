package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/halwest/tapline/internal/engine"
	"github.com/halwest/tapline/internal/temporal"
)

// simulateOptions holds the simulate command's flags.
type simulateOptions struct {
	ScenarioPath string
	Timeline     string
	ForkPoint    string
	AgentID      string
	Action       string
	Horizon      string
	Metrics      []string
}

// SimulationOutput is the JSON payload for the simulate command.
type SimulationOutput struct {
	SimulationTimeline string            `json:"simulation_timeline"`
	OriginalTimeline   string            `json:"original_timeline"`
	ForkPoint          string            `json:"fork_point"`
	SyntheticEventID   string            `json:"synthetic_event_id"`
	Metrics            map[string]string `json:"metrics,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	simOpts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a what-if simulation against a scenario history",
		Long: `Fork a timeline at a point in its history, inject a hypothetical
action as a synthetic event, and report the simulation timeline.

Requested comparison metrics are reported as unavailable unless a handler
is registered; the CLI registers none, so this command is primarily for
inspecting fork mechanics and the synthetic event.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, simOpts, cmd)
		},
	}

	cmd.Flags().StringVar(&simOpts.ScenarioPath, "scenario", "", "scenario YAML to build history from")
	cmd.Flags().StringVar(&simOpts.Timeline, "timeline", engine.MainTimelineID, "timeline to fork")
	cmd.Flags().StringVar(&simOpts.ForkPoint, "fork-point", "", "fork point (RFC 3339)")
	cmd.Flags().StringVar(&simOpts.AgentID, "agent", "", "agent performing the hypothetical action")
	cmd.Flags().StringVar(&simOpts.Action, "action", "", "hypothetical action to inject")
	cmd.Flags().StringVar(&simOpts.Horizon, "horizon", "", "projection horizon (Go duration, e.g. 1h)")
	cmd.Flags().StringSliceVar(&simOpts.Metrics, "metrics", nil, "comparison metric names")
	cobra.CheckErr(cmd.MarkFlagRequired("fork-point"))
	cobra.CheckErr(cmd.MarkFlagRequired("agent"))
	cobra.CheckErr(cmd.MarkFlagRequired("action"))

	return cmd
}

func runSimulate(opts *RootOptions, simOpts *simulateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	forkPoint, err := time.Parse(time.RFC3339, simOpts.ForkPoint)
	if err != nil {
		formatter.Error("BAD_FORK_POINT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "bad fork point", err)
	}

	horizon := time.Duration(0)
	if simOpts.Horizon != "" {
		horizon, err = time.ParseDuration(simOpts.Horizon)
		if err != nil {
			formatter.Error("BAD_HORIZON", err.Error(), nil)
			return WrapExitError(ExitCommandError, "bad horizon", err)
		}
	}

	eng, err := buildEngine(opts, simOpts.ScenarioPath, formatter)
	if err != nil {
		return err
	}

	result, err := eng.WhatIf(cmd.Context(), engine.WhatIfRequest{
		TimelineID: simOpts.Timeline,
		ForkPoint:  forkPoint,
		Action: temporal.AlternativeAction{
			AgentID: simOpts.AgentID,
			Action:  simOpts.Action,
		},
		SimulationHorizon: horizon,
		ComparisonMetrics: simOpts.Metrics,
	})
	if err != nil {
		formatter.Error("SIMULATION", err.Error(), nil)
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	payload := SimulationOutput{
		SimulationTimeline: result.SimulationTimeline,
		OriginalTimeline:   result.OriginalTimeline,
		ForkPoint:          result.ForkPoint.UTC().Format(time.RFC3339Nano),
		SyntheticEventID:   result.SyntheticEventID,
	}
	lines := []string{
		fmt.Sprintf("Simulation timeline: %s", result.SimulationTimeline),
		fmt.Sprintf("Forked from %s at %s", result.OriginalTimeline, payload.ForkPoint),
		fmt.Sprintf("Synthetic event: %s", result.SyntheticEventID),
	}
	if len(result.ComparisonMetrics) > 0 {
		payload.Metrics = make(map[string]string, len(result.ComparisonMetrics))
		for name, mr := range result.ComparisonMetrics {
			payload.Metrics[name] = mr.Status
			lines = append(lines, fmt.Sprintf("Metric %s: %s", name, mr.Status))
		}
	}

	return formatter.SuccessText(payload, lines...)
}
