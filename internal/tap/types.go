package tap

import (
	"fmt"
	"time"

	"github.com/halwest/tapline/internal/temporal"
)

// Protocol is the protocol tag carried by every TAP message.
const Protocol = "TAP"

// Version is the protocol version this package speaks.
const Version = "1.0.0"

// OperationType enumerates temporal operations (writes).
// Values serialize as their lowercase string tag.
type OperationType string

const (
	OpAddEvent       OperationType = "add_event"
	OpRecordState    OperationType = "record_state"
	OpCreateTimeline OperationType = "create_timeline"
	OpForkTimeline   OperationType = "fork_timeline"
	OpDeleteTimeline OperationType = "delete_timeline"
	OpWhatIf         OperationType = "what_if_simulation"
)

// QueryType enumerates temporal queries (reads).
type QueryType string

const (
	QueryStateAtTime    QueryType = "state_at_time"
	QueryEventsInRange  QueryType = "events_in_range"
	QueryCausalChain    QueryType = "causal_chain"
	QueryInferCausality QueryType = "infer_causality"
	QueryMetadata       QueryType = "timeline_metadata"
)

// Resolution tags the temporal resolution of a context.
type Resolution string

const (
	ResolutionSecond      Resolution = "second"
	ResolutionMillisecond Resolution = "millisecond"
)

// Context carries the temporal context of an operation.
type Context struct {
	CurrentTime time.Time  `json:"current_time"`
	TimelineID  string     `json:"timeline_id"`
	Resolution  Resolution `json:"temporal_resolution"`
}

// Operation is a write request against a timeline.
//
// Which payload fields apply depends on OperationType: add_event reads
// Event; record_state reads EntityID/State/Timestamp; fork_timeline reads
// NewTimelineID/ForkPoint/Reason; what_if_simulation reads ForkPoint,
// AlternativeAction, SimulationHorizon, and ComparisonMetrics.
type Operation struct {
	OperationType OperationType `json:"operation_type"`
	Context       Context       `json:"temporal_context"`

	Event *temporal.Event `json:"event,omitempty"`

	EntityID  string     `json:"entity_id,omitempty"`
	State     any        `json:"state,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	NewTimelineID string     `json:"new_timeline_id,omitempty"`
	ForkPoint     *time.Time `json:"fork_point,omitempty"`
	Reason        string     `json:"reason,omitempty"`

	AlternativeAction *temporal.AlternativeAction `json:"alternative_action,omitempty"`
	SimulationHorizon string                      `json:"simulation_horizon,omitempty"` // Go duration string, e.g. "1h30m"
	ComparisonMetrics []string                    `json:"comparison_metrics,omitempty"`
}

// Query is a read request against a timeline.
type Query struct {
	QueryType QueryType `json:"query_type"`
	Context   Context   `json:"temporal_context"`

	QueryTime *time.Time `json:"query_time,omitempty"`
	EntityID  string     `json:"entity_id,omitempty"`

	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Inclusive *bool      `json:"inclusive,omitempty"` // defaults to true
	EventType string     `json:"event_type,omitempty"`
	AgentID   string     `json:"agent_id,omitempty"`

	EventID      string   `json:"event_id,omitempty"`
	CandidateIDs []string `json:"candidate_ids,omitempty"`
	Threshold    float64  `json:"threshold,omitempty"`
	MaxDepth     int      `json:"max_depth,omitempty"`
}

// Message is the serializable request envelope. Exactly one of Operation or
// Query must be populated.
type Message struct {
	Protocol  string     `json:"protocol"`
	Version   string     `json:"version"`
	Operation *Operation `json:"temporal_operation,omitempty"`
	Query     *Query     `json:"temporal_query,omitempty"`
}

// NewOperationMessage wraps an operation in a versioned envelope.
func NewOperationMessage(op Operation) Message {
	return Message{Protocol: Protocol, Version: Version, Operation: &op}
}

// NewQueryMessage wraps a query in a versioned envelope.
func NewQueryMessage(q Query) Message {
	return Message{Protocol: Protocol, Version: Version, Query: &q}
}

// Check verifies the envelope invariants: protocol tag, version presence,
// and the exactly-one-of payload rule.
func (m Message) Check() error {
	if m.Protocol != Protocol {
		return fmt.Errorf("unsupported protocol %q", m.Protocol)
	}
	if m.Version == "" {
		return fmt.Errorf("missing protocol version")
	}
	if (m.Operation == nil) == (m.Query == nil) {
		return fmt.Errorf("exactly one of temporal_operation or temporal_query must be set")
	}
	return nil
}
