package tap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/halwest/tapline/internal/engine"
	"github.com/halwest/tapline/internal/temporal"
)

// errCodeBadMessage tags envelope-level failures that have no temporal
// error code of their own.
const errCodeBadMessage = "INVALID_MESSAGE"

// defaultMaxDepth bounds causal chain traversal when the query leaves
// max_depth unset.
const defaultMaxDepth = 25

// Dispatcher routes validated TAP messages to engine operations and renders
// plain-map responses.
type Dispatcher struct {
	eng *engine.Engine
}

// NewDispatcher creates a dispatcher over the given engine.
func NewDispatcher(eng *engine.Engine) *Dispatcher {
	return &Dispatcher{eng: eng}
}

// DispatchRaw validates, decodes, dispatches, and renders one message as
// canonical JSON bytes. Store-level failures come back as error responses,
// not Go errors; only unserializable results error out.
func (d *Dispatcher) DispatchRaw(ctx context.Context, raw []byte) ([]byte, error) {
	msg, err := Decode(raw)
	if err != nil {
		return temporal.MarshalCanonical(errResponse(errCodeBadMessage, err.Error()))
	}
	return temporal.MarshalCanonical(d.Dispatch(ctx, msg))
}

// Dispatch routes one message and returns the plain-map response.
//
// Responses carry status "ok" with a data map, or status "error" with
// {code, message}. All store failures are recoverable and are reported to
// the caller this way, never as panics or dropped messages.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) map[string]any {
	if err := msg.Check(); err != nil {
		return errResponse(errCodeBadMessage, err.Error())
	}

	if msg.Operation != nil {
		return d.dispatchOperation(ctx, *msg.Operation)
	}
	return d.dispatchQuery(*msg.Query)
}

func (d *Dispatcher) dispatchOperation(ctx context.Context, op Operation) map[string]any {
	timelineID := op.Context.TimelineID
	slog.Debug("dispatching operation",
		"operation", string(op.OperationType),
		"timeline", timelineID,
	)

	switch op.OperationType {
	case OpAddEvent:
		if op.Event == nil {
			return errResponse(errCodeBadMessage, "add_event requires an event payload")
		}
		stored, err := d.eng.AddEvent(timelineID, *op.Event)
		if err != nil {
			return storeError(err)
		}
		return okResponse(map[string]any{"event_id": stored.ID})

	case OpRecordState:
		if op.EntityID == "" {
			return errResponse(errCodeBadMessage, "record_state requires entity_id")
		}
		at := op.Context.CurrentTime
		if op.Timestamp != nil {
			at = *op.Timestamp
		}
		if err := d.eng.RecordState(timelineID, op.EntityID, op.State, at); err != nil {
			return storeError(err)
		}
		return okResponse(map[string]any{"entity_id": op.EntityID, "recorded_at": formatTime(at)})

	case OpCreateTimeline:
		if op.NewTimelineID == "" {
			return errResponse(errCodeBadMessage, "create_timeline requires new_timeline_id")
		}
		if err := d.eng.CreateTimeline(op.NewTimelineID); err != nil {
			return storeError(err)
		}
		return okResponse(map[string]any{"timeline_id": op.NewTimelineID})

	case OpForkTimeline:
		if op.NewTimelineID == "" || op.ForkPoint == nil {
			return errResponse(errCodeBadMessage, "fork_timeline requires new_timeline_id and fork_point")
		}
		if err := d.eng.ForkTimeline(timelineID, op.NewTimelineID, *op.ForkPoint, op.Reason); err != nil {
			return storeError(err)
		}
		return okResponse(map[string]any{
			"timeline_id": op.NewTimelineID,
			"fork_point":  formatTime(*op.ForkPoint),
		})

	case OpDeleteTimeline:
		if err := d.eng.DeleteTimeline(timelineID); err != nil {
			return storeError(err)
		}
		return okResponse(map[string]any{"timeline_id": timelineID})

	case OpWhatIf:
		return d.dispatchWhatIf(ctx, op)

	default:
		return errResponse(errCodeBadMessage, fmt.Sprintf("unknown operation_type %q", op.OperationType))
	}
}

func (d *Dispatcher) dispatchWhatIf(ctx context.Context, op Operation) map[string]any {
	if op.ForkPoint == nil || op.AlternativeAction == nil {
		return errResponse(errCodeBadMessage, "what_if_simulation requires fork_point and alternative_action")
	}

	var horizon time.Duration
	if op.SimulationHorizon != "" {
		parsed, err := time.ParseDuration(op.SimulationHorizon)
		if err != nil {
			return errResponse(errCodeBadMessage, fmt.Sprintf("bad simulation_horizon: %v", err))
		}
		horizon = parsed
	}

	res, err := d.eng.WhatIf(ctx, engine.WhatIfRequest{
		TimelineID:        op.Context.TimelineID,
		ForkPoint:         *op.ForkPoint,
		Action:            *op.AlternativeAction,
		SimulationHorizon: horizon,
		ComparisonMetrics: op.ComparisonMetrics,
	})
	if err != nil {
		return storeError(err)
	}

	metrics := make(map[string]any, len(res.ComparisonMetrics))
	for name, mr := range res.ComparisonMetrics {
		m := map[string]any{"status": mr.Status}
		if mr.Value != nil {
			m["value"] = mr.Value
		}
		if mr.Error != "" {
			m["error"] = mr.Error
		}
		metrics[name] = m
	}

	return okResponse(map[string]any{
		"simulation_timeline": res.SimulationTimeline,
		"original_timeline":   res.OriginalTimeline,
		"fork_point":          formatTime(res.ForkPoint),
		"synthetic_event_id":  res.SyntheticEventID,
		"comparison_metrics":  metrics,
	})
}

func (d *Dispatcher) dispatchQuery(q Query) map[string]any {
	timelineID := q.Context.TimelineID
	slog.Debug("dispatching query",
		"query", string(q.QueryType),
		"timeline", timelineID,
	)

	switch q.QueryType {
	case QueryStateAtTime:
		if q.EntityID == "" || q.QueryTime == nil {
			return errResponse(errCodeBadMessage, "state_at_time requires entity_id and query_time")
		}
		snap, found, err := d.eng.StateAt(timelineID, q.EntityID, *q.QueryTime)
		if err != nil {
			return storeError(err)
		}
		data := map[string]any{"entity_id": q.EntityID, "found": found}
		if found {
			data["snapshot"] = SnapshotToMap(snap)
		}
		return okResponse(data)

	case QueryEventsInRange:
		return d.dispatchRangeQuery(q)

	case QueryCausalChain:
		if q.EventID == "" {
			return errResponse(errCodeBadMessage, "causal_chain requires event_id")
		}
		maxDepth := q.MaxDepth
		if maxDepth <= 0 {
			maxDepth = defaultMaxDepth
		}
		chains, err := d.eng.CausalChain(timelineID, q.EventID, maxDepth)
		if err != nil {
			return storeError(err)
		}
		rendered := make([]any, len(chains))
		for i, chain := range chains {
			rendered[i] = toAnySlice(chain)
		}
		return okResponse(map[string]any{"event_id": q.EventID, "chains": rendered})

	case QueryInferCausality:
		if q.EventID == "" {
			return errResponse(errCodeBadMessage, "infer_causality requires event_id")
		}
		inferences, err := d.eng.InferCausality(timelineID, q.EventID, q.CandidateIDs, q.Threshold)
		if err != nil {
			return storeError(err)
		}
		rendered := make([]any, len(inferences))
		for i, inf := range inferences {
			rendered[i] = map[string]any{
				"event_id":   inf.Event.ID,
				"timestamp":  formatTime(inf.Event.Timestamp),
				"confidence": inf.Confidence,
			}
		}
		return okResponse(map[string]any{"effect_id": q.EventID, "inferences": rendered})

	case QueryMetadata:
		meta, err := d.eng.Metadata(timelineID)
		if err != nil {
			return storeError(err)
		}
		return okResponse(MetadataToMap(meta))

	default:
		return errResponse(errCodeBadMessage, fmt.Sprintf("unknown query_type %q", q.QueryType))
	}
}

func (d *Dispatcher) dispatchRangeQuery(q Query) map[string]any {
	if q.StartTime == nil || q.EndTime == nil {
		return errResponse(errCodeBadMessage, "events_in_range requires start_time and end_time")
	}

	r := temporal.Range{Start: *q.StartTime, End: *q.EndTime, Inclusive: true}
	if q.Inclusive != nil {
		r.Inclusive = *q.Inclusive
	}

	events, err := d.eng.EventsInRange(q.Context.TimelineID, r)
	if err != nil {
		return storeError(err)
	}

	rendered := make([]any, 0, len(events))
	for _, ev := range events {
		if q.EventType != "" && ev.Type != q.EventType {
			continue
		}
		if q.AgentID != "" && ev.AgentID != q.AgentID {
			continue
		}
		rendered = append(rendered, EventToMap(ev))
	}
	return okResponse(map[string]any{"events": rendered, "count": len(rendered)})
}

func okResponse(data map[string]any) map[string]any {
	return map[string]any{"status": "ok", "data": data}
}

func errResponse(code, message string) map[string]any {
	return map[string]any{
		"status": "error",
		"error":  map[string]any{"code": code, "message": message},
	}
}

// storeError renders a store failure, preserving the temporal error code
// when one is present.
func storeError(err error) map[string]any {
	if code := temporal.CodeOf(err); code != "" {
		return errResponse(string(code), err.Error())
	}
	return errResponse(errCodeBadMessage, err.Error())
}
