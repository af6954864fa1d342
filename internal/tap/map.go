package tap

import (
	"time"

	"github.com/halwest/tapline/internal/temporal"
)

// ToMap renders the message as a plain nested map: nested records become
// maps and enum-valued fields become their lowercase string tag. The result
// round-trips through any JSON codec and feeds temporal.MarshalCanonical
// for deterministic wire bytes.
func (m Message) ToMap() map[string]any {
	out := map[string]any{
		"protocol": m.Protocol,
		"version":  m.Version,
	}
	if m.Operation != nil {
		out["temporal_operation"] = m.Operation.toMap()
	}
	if m.Query != nil {
		out["temporal_query"] = m.Query.toMap()
	}
	return out
}

func (c Context) toMap() map[string]any {
	return map[string]any{
		"current_time":        formatTime(c.CurrentTime),
		"timeline_id":         c.TimelineID,
		"temporal_resolution": string(c.Resolution),
	}
}

func (op Operation) toMap() map[string]any {
	out := map[string]any{
		"operation_type":   string(op.OperationType),
		"temporal_context": op.Context.toMap(),
	}
	if op.Event != nil {
		out["event"] = EventToMap(*op.Event)
	}
	if op.EntityID != "" {
		out["entity_id"] = op.EntityID
	}
	if op.State != nil {
		out["state"] = op.State
	}
	if op.Timestamp != nil {
		out["timestamp"] = formatTime(*op.Timestamp)
	}
	if op.NewTimelineID != "" {
		out["new_timeline_id"] = op.NewTimelineID
	}
	if op.ForkPoint != nil {
		out["fork_point"] = formatTime(*op.ForkPoint)
	}
	if op.Reason != "" {
		out["reason"] = op.Reason
	}
	if op.AlternativeAction != nil {
		out["alternative_action"] = actionToMap(*op.AlternativeAction)
	}
	if op.SimulationHorizon != "" {
		out["simulation_horizon"] = op.SimulationHorizon
	}
	if len(op.ComparisonMetrics) > 0 {
		out["comparison_metrics"] = toAnySlice(op.ComparisonMetrics)
	}
	return out
}

func (q Query) toMap() map[string]any {
	out := map[string]any{
		"query_type":       string(q.QueryType),
		"temporal_context": q.Context.toMap(),
	}
	if q.QueryTime != nil {
		out["query_time"] = formatTime(*q.QueryTime)
	}
	if q.EntityID != "" {
		out["entity_id"] = q.EntityID
	}
	if q.StartTime != nil {
		out["start_time"] = formatTime(*q.StartTime)
	}
	if q.EndTime != nil {
		out["end_time"] = formatTime(*q.EndTime)
	}
	if q.Inclusive != nil {
		out["inclusive"] = *q.Inclusive
	}
	if q.EventType != "" {
		out["event_type"] = q.EventType
	}
	if q.AgentID != "" {
		out["agent_id"] = q.AgentID
	}
	if q.EventID != "" {
		out["event_id"] = q.EventID
	}
	if len(q.CandidateIDs) > 0 {
		out["candidate_ids"] = toAnySlice(q.CandidateIDs)
	}
	if q.Threshold != 0 {
		out["threshold"] = q.Threshold
	}
	if q.MaxDepth != 0 {
		out["max_depth"] = q.MaxDepth
	}
	return out
}

// EventToMap renders a recorded event as a plain map for wire responses.
func EventToMap(ev temporal.Event) map[string]any {
	out := map[string]any{
		"event_id":   ev.ID,
		"timestamp":  formatTime(ev.Timestamp),
		"event_type": ev.Type,
	}
	if ev.AgentID != "" {
		out["agent_id"] = ev.AgentID
	}
	if len(ev.Data) > 0 {
		out["data"] = ev.Data
	}
	if len(ev.Causes) > 0 {
		out["causes"] = toAnySlice(ev.Causes)
	}
	if ev.CausalStrength != 0 {
		out["causal_strength"] = ev.CausalStrength
	}
	if ev.Synthetic {
		out["synthetic"] = true
	}
	return out
}

// SnapshotToMap renders a state snapshot for wire responses.
func SnapshotToMap(snap temporal.StateSnapshot) map[string]any {
	return map[string]any{
		"timestamp": formatTime(snap.Timestamp),
		"state":     snap.State,
	}
}

// MetadataToMap renders timeline metadata for wire responses.
func MetadataToMap(meta temporal.Metadata) map[string]any {
	out := map[string]any{
		"timeline_state": string(meta.State),
		"version":        meta.Version,
	}
	if len(meta.DivergencePoints) > 0 {
		points := make([]any, len(meta.DivergencePoints))
		for i, dp := range meta.DivergencePoints {
			points[i] = map[string]any{
				"timestamp": formatTime(dp.Timestamp),
				"reason":    dp.Reason,
			}
		}
		out["divergence_points"] = points
	}
	return out
}

func actionToMap(a temporal.AlternativeAction) map[string]any {
	out := map[string]any{
		"agent_id": a.AgentID,
		"action":   a.Action,
	}
	if len(a.Parameters) > 0 {
		out["parameters"] = a.Parameters
	}
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
