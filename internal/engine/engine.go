package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/halwest/tapline/internal/causality"
	"github.com/halwest/tapline/internal/temporal"
	"github.com/halwest/tapline/internal/timeline"
)

// MainTimelineID is the timeline every engine is seeded with.
const MainTimelineID = "main"

// Engine is the top-level registry of named timelines.
//
// All operations are id-addressed: callers never hold *timeline.Timeline
// references across calls, which keeps parent/child back-references free of
// ownership cycles. The registry mutex guards only the id map; each timeline
// carries its own read/write lock, so writes to distinct timelines proceed
// independently.
type Engine struct {
	mu        sync.RWMutex
	timelines map[string]*timeline.Timeline

	analyzer *causality.Analyzer
	eventIDs IDGenerator
	simIDs   IDGenerator

	metricsMu sync.RWMutex
	metrics   map[string]MetricFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer substitutes the causal scoring policy.
func WithScorer(s causality.Scorer) Option {
	return func(e *Engine) {
		e.analyzer = causality.New(s)
	}
}

// WithEventIDGenerator substitutes the generator used for auto-assigned
// event ids. Tests use FixedGenerator for deterministic traces.
func WithEventIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.eventIDs = g
	}
}

// WithSimulationIDGenerator substitutes the generator used for what-if
// simulation timeline ids.
func WithSimulationIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.simIDs = g
	}
}

// New creates an Engine seeded with the "main" timeline.
func New(opts ...Option) *Engine {
	e := &Engine{
		timelines: map[string]*timeline.Timeline{
			MainTimelineID: timeline.New(MainTimelineID),
		},
		analyzer: causality.New(nil),
		eventIDs: NewULIDGenerator(),
		simIDs:   UUIDv7Generator{},
		metrics:  make(map[string]MetricFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateTimeline registers a fresh root timeline under id.
// Fails with a DuplicateTimeline error when id is already present.
func (e *Engine) CreateTimeline(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.timelines[id]; exists {
		return temporal.NewDuplicateTimelineError(id)
	}
	e.timelines[id] = timeline.New(id)

	slog.Debug("timeline created", "timeline", id)
	return nil
}

// ForkTimeline forks sourceID at forkPoint and registers the child under
// newID. Fails when sourceID is unknown, newID is taken, or the fork point
// predates the parent's recorded history.
func (e *Engine) ForkTimeline(sourceID, newID string, forkPoint time.Time, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	source, ok := e.timelines[sourceID]
	if !ok {
		return temporal.NewUnknownTimelineError(sourceID)
	}
	if _, taken := e.timelines[newID]; taken {
		return temporal.NewDuplicateTimelineError(newID)
	}

	child, err := source.Fork(newID, forkPoint, reason)
	if err != nil {
		return err
	}
	e.timelines[newID] = child

	slog.Info("timeline forked",
		"source", sourceID,
		"child", newID,
		"fork_point", forkPoint,
	)
	return nil
}

// DeleteTimeline removes a timeline from the registry.
//
// The "main" timeline cannot be deleted, and neither can a timeline that
// registered children still reference: no timeline owns or outlives its
// children, so deleting a parent while children exist is an error. Orphaned
// simulation timelines are the intended target of this call.
func (e *Engine) DeleteTimeline(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, ok := e.timelines[id]
	if !ok {
		return temporal.NewUnknownTimelineError(id)
	}
	if id == MainTimelineID {
		return temporal.NewTimelineInUseError(id)
	}
	for _, tl := range e.timelines {
		if tl.Parent() == target {
			return temporal.NewTimelineInUseError(id)
		}
	}

	delete(e.timelines, id)
	slog.Info("timeline deleted", "timeline", id)
	return nil
}

// Timeline resolves a registered timeline by id.
func (e *Engine) Timeline(id string) (*timeline.Timeline, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tl, ok := e.timelines[id]
	if !ok {
		return nil, temporal.NewUnknownTimelineError(id)
	}
	return tl, nil
}

// HasTimeline reports whether id is registered.
func (e *Engine) HasTimeline(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.timelines[id]
	return ok
}

// TimelineIDs returns the registered timeline ids in no particular order.
func (e *Engine) TimelineIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.timelines))
	for id := range e.timelines {
		ids = append(ids, id)
	}
	return ids
}

// AddEvent appends an event to the named timeline and returns the stored
// event. An empty event id is assigned a generated ULID; a supplied id that
// collides fails with a DuplicateEvent error.
func (e *Engine) AddEvent(timelineID string, ev temporal.Event) (temporal.Event, error) {
	tl, err := e.Timeline(timelineID)
	if err != nil {
		return temporal.Event{}, err
	}

	if ev.ID == "" {
		ev.ID = e.eventIDs.Generate()
	}
	if err := tl.AddEvent(ev); err != nil {
		return temporal.Event{}, err
	}

	slog.Debug("event added",
		"timeline", timelineID,
		"event", ev.ID,
		"type", ev.Type,
		"agent", ev.AgentID,
	)
	return ev, nil
}

// EventsInRange returns the named timeline's events within r, ascending.
func (e *Engine) EventsInRange(timelineID string, r temporal.Range) ([]temporal.Event, error) {
	tl, err := e.Timeline(timelineID)
	if err != nil {
		return nil, err
	}
	return tl.EventsInRange(r)
}

// RecordState appends an entity state snapshot on the named timeline.
func (e *Engine) RecordState(timelineID, entityID string, state any, at time.Time) error {
	tl, err := e.Timeline(timelineID)
	if err != nil {
		return err
	}
	tl.RecordState(entityID, state, at)
	return nil
}

// StateAt returns the entity's most recent snapshot at or before queryTime
// on the named timeline, delegating through fork ancestry as needed.
// ok=false means no data, which is not an error.
func (e *Engine) StateAt(timelineID, entityID string, queryTime time.Time) (temporal.StateSnapshot, bool, error) {
	tl, err := e.Timeline(timelineID)
	if err != nil {
		return temporal.StateSnapshot{}, false, err
	}
	snap, ok := tl.StateAt(entityID, queryTime)
	return snap, ok, nil
}

// CausalChain returns every distinct declared-cause path from eventID back
// to a root on the named timeline, each ordered effect to root, bounded at
// maxDepth edges.
func (e *Engine) CausalChain(timelineID, eventID string, maxDepth int) ([][]string, error) {
	tl, err := e.Timeline(timelineID)
	if err != nil {
		return nil, err
	}
	if _, ok := tl.Event(eventID); !ok {
		return nil, temporal.NewUnknownEventError(timelineID, eventID)
	}
	return e.analyzer.BuildChains(eventID, tl.EventsByID(), maxDepth), nil
}

// InferCausality resolves effectID and each candidate id on the named
// timeline and delegates to the analyzer. Fails with an UnknownEvent error
// when any id is missing. An empty result is the non-error outcome of a
// query that finds nothing above threshold.
func (e *Engine) InferCausality(timelineID, effectID string, candidateIDs []string, threshold float64) ([]causality.Inference, error) {
	tl, err := e.Timeline(timelineID)
	if err != nil {
		return nil, err
	}

	effect, ok := tl.Event(effectID)
	if !ok {
		return nil, temporal.NewUnknownEventError(timelineID, effectID)
	}

	candidates := make([]temporal.Event, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		cand, ok := tl.Event(id)
		if !ok {
			return nil, temporal.NewUnknownEventError(timelineID, id)
		}
		candidates = append(candidates, cand)
	}

	return e.analyzer.Infer(effect, candidates, threshold), nil
}

// Metadata returns the named timeline's lifecycle metadata.
func (e *Engine) Metadata(timelineID string) (temporal.Metadata, error) {
	tl, err := e.Timeline(timelineID)
	if err != nil {
		return temporal.Metadata{}, err
	}
	return tl.Metadata(), nil
}
