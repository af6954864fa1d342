package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario declares a timeline history to build and the queries and
// assertions to run against it. Scenarios are the conformance surface of
// the store: they exercise the same dispatch path production clients use,
// and their traces are compared against golden files.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// CurrentTime is the observer instant stamped into every dispatched
	// message. Fixed per scenario so traces stay byte-identical.
	CurrentTime string `yaml:"current_time"`

	// Timelines declares branches forked off an existing timeline.
	// The main timeline always exists and is never declared.
	Timelines []TimelineDecl `yaml:"timelines,omitempty"`

	// Events to append, in declaration order.
	Events []EventDecl `yaml:"events,omitempty"`

	// States to record, in declaration order.
	States []StateDecl `yaml:"states,omitempty"`

	// WhatIf runs counterfactual simulations after history is built.
	WhatIf []WhatIfDecl `yaml:"what_if,omitempty"`

	// Queries dispatch TAP queries in order; each request/response pair
	// becomes one trace step.
	Queries []QueryDecl `yaml:"queries"`

	// Assertions validate engine state after all steps ran.
	Assertions []Assertion `yaml:"assertions"`
}

// TimelineDecl forks a new timeline from an existing one.
type TimelineDecl struct {
	ID        string `yaml:"id"`
	ForkFrom  string `yaml:"fork_from"`
	ForkPoint string `yaml:"fork_point"`
	Reason    string `yaml:"reason,omitempty"`
}

// EventDecl appends one event. Timeline defaults to main.
type EventDecl struct {
	Timeline  string         `yaml:"timeline,omitempty"`
	ID        string         `yaml:"id"`
	Type      string         `yaml:"type"`
	Timestamp string         `yaml:"timestamp"`
	AgentID   string         `yaml:"agent_id,omitempty"`
	Causes    []string       `yaml:"causes,omitempty"`
	Data      map[string]any `yaml:"data,omitempty"`
}

// StateDecl records one entity state write. Timeline defaults to main.
type StateDecl struct {
	Timeline  string `yaml:"timeline,omitempty"`
	Entity    string `yaml:"entity"`
	State     any    `yaml:"state"`
	Timestamp string `yaml:"timestamp"`
}

// WhatIfDecl runs one counterfactual simulation. Timeline defaults to main.
type WhatIfDecl struct {
	Timeline  string         `yaml:"timeline,omitempty"`
	ForkPoint string         `yaml:"fork_point"`
	AgentID   string         `yaml:"agent_id"`
	Action    string         `yaml:"action"`
	Params    map[string]any `yaml:"parameters,omitempty"`
	Horizon   string         `yaml:"horizon,omitempty"`
	Metrics   []string       `yaml:"metrics,omitempty"`
}

// QueryDecl dispatches one TAP query. Timeline defaults to main.
// Fields beyond query_type mirror the TAP query payload; which ones are
// required depends on the query type and is enforced at dispatch.
type QueryDecl struct {
	QueryType    string   `yaml:"query_type"`
	Timeline     string   `yaml:"timeline,omitempty"`
	Entity       string   `yaml:"entity,omitempty"`
	QueryTime    string   `yaml:"query_time,omitempty"`
	Start        string   `yaml:"start,omitempty"`
	End          string   `yaml:"end,omitempty"`
	Inclusive    *bool    `yaml:"inclusive,omitempty"`
	EventType    string   `yaml:"event_type,omitempty"`
	AgentID      string   `yaml:"agent_id,omitempty"`
	EventID      string   `yaml:"event_id,omitempty"`
	CandidateIDs []string `yaml:"candidate_ids,omitempty"`
	Threshold    float64  `yaml:"threshold,omitempty"`
	MaxDepth     int      `yaml:"max_depth,omitempty"`
}

// Assertion validates final engine state.
type Assertion struct {
	// Type selects the check:
	//   - "state_at": entity state at an instant equals Expect (or is
	//     absent when Absent is set)
	//   - "events_in_range": range query returns exactly Count events
	//   - "causal_chain_contains": one complete chain from Event equals
	//     Chain
	//   - "inference_excludes": inferring causes of Event never returns
	//     Excluded
	Type string `yaml:"type"`

	Timeline string `yaml:"timeline,omitempty"`

	// state_at fields.
	Entity string `yaml:"entity,omitempty"`
	At     string `yaml:"at,omitempty"`
	Expect any    `yaml:"expect,omitempty"`
	Absent bool   `yaml:"absent,omitempty"`

	// events_in_range fields.
	Start     string `yaml:"start,omitempty"`
	End       string `yaml:"end,omitempty"`
	Inclusive *bool  `yaml:"inclusive,omitempty"`
	Count     int    `yaml:"count,omitempty"`

	// causal_chain_contains and inference_excludes fields.
	Event        string   `yaml:"event,omitempty"`
	Chain        []string `yaml:"chain,omitempty"`
	CandidateIDs []string `yaml:"candidate_ids,omitempty"`
	Excluded     string   `yaml:"excluded,omitempty"`
	Threshold    float64  `yaml:"threshold,omitempty"`
}

// Assertion type constants.
const (
	AssertStateAt             = "state_at"
	AssertEventsInRange       = "events_in_range"
	AssertCausalChainContains = "causal_chain_contains"
	AssertInferenceExcludes   = "inference_excludes"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently dropping steps.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.CurrentTime == "" {
		return fmt.Errorf("current_time is required")
	}
	if _, err := parseTime(s.CurrentTime); err != nil {
		return fmt.Errorf("current_time: %w", err)
	}

	for i, tl := range s.Timelines {
		if tl.ID == "" || tl.ForkFrom == "" || tl.ForkPoint == "" {
			return fmt.Errorf("timelines[%d]: id, fork_from, and fork_point are required", i)
		}
		if _, err := parseTime(tl.ForkPoint); err != nil {
			return fmt.Errorf("timelines[%d].fork_point: %w", i, err)
		}
	}
	for i, ev := range s.Events {
		if ev.ID == "" || ev.Type == "" || ev.Timestamp == "" {
			return fmt.Errorf("events[%d]: id, type, and timestamp are required", i)
		}
		if _, err := parseTime(ev.Timestamp); err != nil {
			return fmt.Errorf("events[%d].timestamp: %w", i, err)
		}
	}
	for i, st := range s.States {
		if st.Entity == "" || st.Timestamp == "" {
			return fmt.Errorf("states[%d]: entity and timestamp are required", i)
		}
		if _, err := parseTime(st.Timestamp); err != nil {
			return fmt.Errorf("states[%d].timestamp: %w", i, err)
		}
	}
	for i, w := range s.WhatIf {
		if w.ForkPoint == "" || w.AgentID == "" || w.Action == "" {
			return fmt.Errorf("what_if[%d]: fork_point, agent_id, and action are required", i)
		}
		if _, err := parseTime(w.ForkPoint); err != nil {
			return fmt.Errorf("what_if[%d].fork_point: %w", i, err)
		}
	}
	for i, q := range s.Queries {
		if q.QueryType == "" {
			return fmt.Errorf("queries[%d]: query_type is required", i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertStateAt:
			if a.Entity == "" || a.At == "" {
				return fmt.Errorf("assertions[%d]: state_at requires entity and at", i)
			}
		case AssertEventsInRange:
			if a.Start == "" || a.End == "" {
				return fmt.Errorf("assertions[%d]: events_in_range requires start and end", i)
			}
		case AssertCausalChainContains:
			if a.Event == "" || len(a.Chain) == 0 {
				return fmt.Errorf("assertions[%d]: causal_chain_contains requires event and chain", i)
			}
		case AssertInferenceExcludes:
			if a.Event == "" || a.Excluded == "" {
				return fmt.Errorf("assertions[%d]: inference_excludes requires event and excluded", i)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}
