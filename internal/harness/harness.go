// Package harness runs declarative conformance scenarios against the
// temporal store. A scenario builds a timeline history, dispatches TAP
// queries through the same path production clients use, and checks
// assertions on the final engine state. Query traces feed golden file
// comparison for byte-stable regression coverage.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/halwest/tapline/internal/engine"
	"github.com/halwest/tapline/internal/tap"
	"github.com/halwest/tapline/internal/temporal"
)

// TraceEntry records one dispatched query and its response.
type TraceEntry struct {
	Step     int            `json:"step"`
	Request  map[string]any `json:"request"`
	Response map[string]any `json:"response"`
}

// Result is the outcome of running a scenario.
type Result struct {
	ScenarioName string
	Trace        []TraceEntry
	Failures     []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario against a fresh engine.
//
// Each scenario gets its own engine for isolation. Simulation ids come from
// a fixed generator so what-if steps produce stable timeline names.
//
// Build errors (bad declarations, rejected events) abort the run. Assertion
// failures do not: they accumulate on the result so a scenario reports all
// of them at once.
func Run(scenario *Scenario) (*Result, error) {
	eng := engine.New(
		engine.WithSimulationIDGenerator(engine.NewFixedGenerator(simIDs(len(scenario.WhatIf))...)),
	)
	return RunWith(eng, scenario)
}

// RunWith executes a scenario against a caller-supplied engine. Useful when
// the caller has registered comparison metrics or swapped the scorer.
func RunWith(eng *engine.Engine, scenario *Scenario) (*Result, error) {
	currentTime, err := parseTime(scenario.CurrentTime)
	if err != nil {
		return nil, err
	}

	slog.Debug("running scenario", "scenario", scenario.Name)

	if err := buildHistory(eng, scenario); err != nil {
		return nil, err
	}

	d := tap.NewDispatcher(eng)
	ctx := context.Background()

	result := &Result{ScenarioName: scenario.Name}
	for i, q := range scenario.Queries {
		msg, err := queryMessage(q, currentTime)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		result.Trace = append(result.Trace, TraceEntry{
			Step:     i + 1,
			Request:  msg.ToMap(),
			Response: d.Dispatch(ctx, msg),
		})
	}

	result.Failures = checkAssertions(eng, scenario)
	return result, nil
}

func buildHistory(eng *engine.Engine, scenario *Scenario) error {
	for i, tl := range scenario.Timelines {
		forkPoint, err := parseTime(tl.ForkPoint)
		if err != nil {
			return fmt.Errorf("timelines[%d]: %w", i, err)
		}
		if err := eng.ForkTimeline(tl.ForkFrom, tl.ID, forkPoint, tl.Reason); err != nil {
			return fmt.Errorf("timelines[%d]: %w", i, err)
		}
	}

	for i, decl := range scenario.Events {
		ts, err := parseTime(decl.Timestamp)
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		_, err = eng.AddEvent(timelineOrMain(decl.Timeline), temporal.Event{
			ID:        decl.ID,
			Timestamp: ts,
			Type:      decl.Type,
			AgentID:   decl.AgentID,
			Causes:    decl.Causes,
			Data:      decl.Data,
		})
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}

	for i, decl := range scenario.States {
		ts, err := parseTime(decl.Timestamp)
		if err != nil {
			return fmt.Errorf("states[%d]: %w", i, err)
		}
		if err := eng.RecordState(timelineOrMain(decl.Timeline), decl.Entity, decl.State, ts); err != nil {
			return fmt.Errorf("states[%d]: %w", i, err)
		}
	}

	for i, decl := range scenario.WhatIf {
		forkPoint, err := parseTime(decl.ForkPoint)
		if err != nil {
			return fmt.Errorf("what_if[%d]: %w", i, err)
		}
		horizon := time.Duration(0)
		if decl.Horizon != "" {
			horizon, err = time.ParseDuration(decl.Horizon)
			if err != nil {
				return fmt.Errorf("what_if[%d]: bad horizon: %w", i, err)
			}
		}
		_, err = eng.WhatIf(context.Background(), engine.WhatIfRequest{
			TimelineID: timelineOrMain(decl.Timeline),
			ForkPoint:  forkPoint,
			Action: temporal.AlternativeAction{
				AgentID:    decl.AgentID,
				Action:     decl.Action,
				Parameters: decl.Params,
			},
			SimulationHorizon: horizon,
			ComparisonMetrics: decl.Metrics,
		})
		if err != nil {
			return fmt.Errorf("what_if[%d]: %w", i, err)
		}
	}

	return nil
}

func queryMessage(q QueryDecl, currentTime time.Time) (tap.Message, error) {
	query := tap.Query{
		QueryType: tap.QueryType(q.QueryType),
		Context: tap.Context{
			CurrentTime: currentTime,
			TimelineID:  timelineOrMain(q.Timeline),
			Resolution:  tap.ResolutionSecond,
		},
		EntityID:     q.Entity,
		EventType:    q.EventType,
		AgentID:      q.AgentID,
		EventID:      q.EventID,
		CandidateIDs: q.CandidateIDs,
		Threshold:    q.Threshold,
		MaxDepth:     q.MaxDepth,
		Inclusive:    q.Inclusive,
	}

	for _, f := range []struct {
		raw  string
		dest **time.Time
	}{
		{q.QueryTime, &query.QueryTime},
		{q.Start, &query.StartTime},
		{q.End, &query.EndTime},
	} {
		if f.raw == "" {
			continue
		}
		t, err := parseTime(f.raw)
		if err != nil {
			return tap.Message{}, err
		}
		*f.dest = &t
	}

	return tap.NewQueryMessage(query), nil
}

func timelineOrMain(id string) string {
	if id == "" {
		return engine.MainTimelineID
	}
	return id
}

// simIDs pre-allocates fixed simulation ids, one per what-if step.
func simIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%04d", i+1)
	}
	return ids
}
