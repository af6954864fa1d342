package tap

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schema is the CUE contract for TAP messages. Definitions are closed, so
// unknown fields are rejected, and the #Message disjunction enforces the
// exactly-one-of rule between temporal_operation and temporal_query.
const schema = `
#Context: {
	current_time:        string
	timeline_id:         string & !=""
	temporal_resolution: "second" | "millisecond"
}

#Event: {
	event_id?:        string
	timestamp:        string
	event_type:       string & !=""
	agent_id?:        string
	data?:            {...}
	causes?:          [...string]
	causal_strength?: >=0 & <=1
	synthetic?:       bool
}

#Action: {
	agent_id:    string
	action:      string & !=""
	parameters?: {...}
}

#Operation: {
	operation_type:      "add_event" | "record_state" | "create_timeline" | "fork_timeline" | "delete_timeline" | "what_if_simulation"
	temporal_context:    #Context
	event?:              #Event
	entity_id?:          string
	state?:              _
	timestamp?:          string
	new_timeline_id?:    string
	fork_point?:         string
	reason?:             string
	alternative_action?: #Action
	simulation_horizon?: string
	comparison_metrics?: [...string]
}

#Query: {
	query_type:       "state_at_time" | "events_in_range" | "causal_chain" | "infer_causality" | "timeline_metadata"
	temporal_context: #Context
	query_time?:      string
	entity_id?:       string
	start_time?:      string
	end_time?:        string
	inclusive?:       bool
	event_type?:      string
	agent_id?:        string
	event_id?:        string
	candidate_ids?:   [...string]
	threshold?:       >=0 & <=1
	max_depth?:       int & >=0
}

#Message: {
	protocol:           "TAP"
	version:            =~"^[0-9]+\\.[0-9]+\\.[0-9]+$"
	temporal_operation: #Operation
} | {
	protocol:       "TAP"
	version:        =~"^[0-9]+\\.[0-9]+\\.[0-9]+$"
	temporal_query: #Query
}
`

// ValidateBytes checks a raw JSON message against the embedded CUE schema.
// Returns nil for a conforming message.
func ValidateBytes(raw []byte) error {
	cctx := cuecontext.New()

	schemaVal := cctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile TAP schema: %w", err)
	}
	msgSchema := schemaVal.LookupPath(cue.ParsePath("#Message"))
	if err := msgSchema.Err(); err != nil {
		return fmt.Errorf("lookup #Message: %w", err)
	}

	// JSON is a subset of CUE, so the raw bytes compile directly.
	data := cctx.CompileBytes(raw)
	if err := data.Err(); err != nil {
		return fmt.Errorf("parse message: %w", formatCUEError(err))
	}

	unified := msgSchema.Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return fmt.Errorf("message does not conform to TAP schema: %w", formatCUEError(err))
	}
	return nil
}

// Decode validates raw bytes against the schema, unmarshals them, and
// checks the envelope invariants.
func Decode(raw []byte) (Message, error) {
	if err := ValidateBytes(raw); err != nil {
		return Message{}, err
	}
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	if err := m.Check(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// formatCUEError flattens a CUE error list into a single readable error.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return fmt.Errorf("%s", msg)
}
