package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/halwest/tapline/internal/temporal"
	"github.com/halwest/tapline/internal/timeline"
)

// WhatIfEventType tags the synthetic event a simulation injects at its fork
// point, distinguishing it from organically recorded events.
const WhatIfEventType = "what_if_action"

// MetricFunc computes one named comparison metric between the original
// timeline and its simulation, projected over horizon.
//
// Handlers are caller-registered and may block or call out; they run after
// the fork completes, against the independent simulation timeline, and never
// under the source timeline's write lock.
type MetricFunc func(ctx context.Context, original, simulation *timeline.Timeline, horizon time.Duration) (any, error)

// Metric value statuses in a what-if result.
const (
	MetricComputed    = "computed"
	MetricUnavailable = "unavailable"
	MetricFailed      = "failed"
)

// MetricResult carries one requested metric's outcome. A metric with no
// registered handler is reported as unavailable rather than silently
// omitted.
type MetricResult struct {
	Status string `json:"status"`
	Value  any    `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WhatIfRequest describes a hypothetical to explore.
type WhatIfRequest struct {
	TimelineID        string
	ForkPoint         time.Time
	Action            temporal.AlternativeAction
	SimulationHorizon time.Duration
	ComparisonMetrics []string
}

// WhatIfResult reports the simulation timeline and the requested metric
// comparisons. ForkPoint echoes the request exactly.
type WhatIfResult struct {
	SimulationTimeline string                  `json:"simulation_timeline"`
	OriginalTimeline   string                  `json:"original_timeline"`
	ForkPoint          time.Time               `json:"fork_point"`
	SyntheticEventID   string                  `json:"synthetic_event_id"`
	ComparisonMetrics  map[string]MetricResult `json:"comparison_metrics"`
}

// RegisterMetric installs a handler for a named comparison metric.
// Registering the same name again replaces the previous handler.
func (e *Engine) RegisterMetric(name string, fn MetricFunc) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	e.metrics[name] = fn
}

// metricFor resolves a handler by name.
func (e *Engine) metricFor(name string) (MetricFunc, bool) {
	e.metricsMu.RLock()
	defer e.metricsMu.RUnlock()
	fn, ok := e.metrics[name]
	return fn, ok
}

// WhatIf forks the source timeline at the requested fork point into a
// fresh, uniquely named simulation timeline, injects the alternative action
// as a synthetic event there, and computes the requested comparison metrics.
//
// Locking: only the fork step needs exclusive access to the source; metric
// projection runs afterward on the new, independent simulation timeline.
// Cancellation never corrupts engine state: once forked, the simulation
// timeline stays registered (orphaned) for the caller to inspect or discard
// with DeleteTimeline, and events are never partially applied.
func (e *Engine) WhatIf(ctx context.Context, req WhatIfRequest) (*WhatIfResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	simID := "sim-" + e.simIDs.Generate()
	if err := e.ForkTimeline(req.TimelineID, simID, req.ForkPoint, "what-if: "+req.Action.Action); err != nil {
		return nil, fmt.Errorf("fork simulation timeline: %w", err)
	}

	synthetic := temporal.Event{
		Timestamp: req.ForkPoint,
		Type:      WhatIfEventType,
		AgentID:   req.Action.AgentID,
		Data: map[string]any{
			"action":     req.Action.Action,
			"parameters": req.Action.Parameters,
		},
		Synthetic: true,
	}
	stored, err := e.AddEvent(simID, synthetic)
	if err != nil {
		// The fork succeeded; leave the simulation registered for inspection.
		return nil, fmt.Errorf("inject alternative action on %s: %w", simID, err)
	}

	slog.Info("what-if simulation started",
		"original", req.TimelineID,
		"simulation", simID,
		"fork_point", req.ForkPoint,
		"action", req.Action.Action,
	)

	original, err := e.Timeline(req.TimelineID)
	if err != nil {
		return nil, err
	}
	simulation, err := e.Timeline(simID)
	if err != nil {
		return nil, err
	}

	result := &WhatIfResult{
		SimulationTimeline: simID,
		OriginalTimeline:   req.TimelineID,
		ForkPoint:          req.ForkPoint,
		SyntheticEventID:   stored.ID,
		ComparisonMetrics:  make(map[string]MetricResult, len(req.ComparisonMetrics)),
	}

	for _, name := range req.ComparisonMetrics {
		if err := ctx.Err(); err != nil {
			result.ComparisonMetrics[name] = MetricResult{Status: MetricFailed, Error: err.Error()}
			continue
		}

		fn, ok := e.metricFor(name)
		if !ok {
			result.ComparisonMetrics[name] = MetricResult{Status: MetricUnavailable}
			continue
		}

		value, err := fn(ctx, original, simulation, req.SimulationHorizon)
		if err != nil {
			slog.Warn("metric handler failed",
				"metric", name,
				"simulation", simID,
				"error", err,
			)
			result.ComparisonMetrics[name] = MetricResult{Status: MetricFailed, Error: err.Error()}
			continue
		}
		result.ComparisonMetrics[name] = MetricResult{Status: MetricComputed, Value: value}
	}

	return result, nil
}
