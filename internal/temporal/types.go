package temporal

import "time"

// Event is a single recorded occurrence on a timeline.
//
// Events are immutable once added. Causes carries producer-asserted links to
// earlier event IDs; CausalStrength is the producer's own confidence in those
// links (0-1) and is never modified by the analyzer.
type Event struct {
	ID             string         `json:"event_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Type           string         `json:"event_type"`
	AgentID        string         `json:"agent_id,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	Causes         []string       `json:"causes,omitempty"`
	CausalStrength float64        `json:"causal_strength,omitempty"`
	Synthetic      bool           `json:"synthetic,omitempty"` // injected by what-if simulation, not organically recorded
}

// StateSnapshot is one entry in an entity's state history.
type StateSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	State     any       `json:"state"`
}

// TimelineState describes the lifecycle phase of a timeline.
type TimelineState string

const (
	TimelineStable    TimelineState = "stable"
	TimelineDiverging TimelineState = "diverging"
	TimelineMerged    TimelineState = "merged"
)

// DivergencePoint records where and why a timeline forked.
type DivergencePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// Metadata tracks a timeline's lifecycle state.
//
// Version increases by one on every mutation of the owning timeline
// (event insert, state record, fork). DivergencePoints accumulates one
// entry per fork taken from the timeline.
type Metadata struct {
	State            TimelineState     `json:"timeline_state"`
	Version          int64             `json:"version"`
	DivergencePoints []DivergencePoint `json:"divergence_points,omitempty"`
}

// AlternativeAction is the hypothetical action a what-if simulation injects
// at the fork point of the simulation timeline.
type AlternativeAction struct {
	AgentID    string         `json:"agent_id"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}
