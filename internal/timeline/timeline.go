package timeline

import (
	"sort"
	"sync"
	"time"

	"github.com/halwest/tapline/internal/temporal"
)

// Timeline is an independent, ordered event log plus per-entity state history.
//
// Events live in two structures kept in sync: an id map for O(1) lookup and a
// timestamp-sorted slice for range queries. Insertion keeps the slice sorted
// via binary search; ties on timestamp preserve insertion order.
//
// A forked timeline holds a read-only back-reference to its parent and stores
// only its own deltas. State queries that find no local answer delegate to
// the parent, evaluated no later than the fork point, so a child transparently
// inherits everything from before its fork without copying.
//
// Thread-safety model:
//   - Reads (EventsInRange, StateAt, accessors) may run concurrently.
//   - Writes (AddEvent, RecordState, Fork) are mutually exclusive per
//     timeline but independent across timelines.
type Timeline struct {
	mu sync.RWMutex

	id      string
	events  map[string]temporal.Event
	ordered []temporal.Event // ascending by timestamp, ties by insertion order
	states  map[string][]temporal.StateSnapshot

	parent    *Timeline // read-only back-reference, never an ownership edge
	forkPoint time.Time
	forked    bool

	meta temporal.Metadata
}

// New creates an empty root timeline with the given id.
func New(id string) *Timeline {
	return &Timeline{
		id:     id,
		events: make(map[string]temporal.Event),
		states: make(map[string][]temporal.StateSnapshot),
		meta:   temporal.Metadata{State: temporal.TimelineStable},
	}
}

// ID returns the timeline's identifier.
func (tl *Timeline) ID() string {
	return tl.id
}

// Parent returns the parent timeline, or nil for a root timeline.
func (tl *Timeline) Parent() *Timeline {
	return tl.parent
}

// ForkPoint returns the fork point and whether this timeline was forked.
func (tl *Timeline) ForkPoint() (time.Time, bool) {
	return tl.forkPoint, tl.forked
}

// Metadata returns a copy of the timeline's lifecycle metadata.
func (tl *Timeline) Metadata() temporal.Metadata {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	meta := tl.meta
	meta.DivergencePoints = append([]temporal.DivergencePoint(nil), tl.meta.DivergencePoints...)
	return meta
}

// AddEvent inserts an event into the local log.
//
// The event id must be unique within this timeline; a collision returns a
// DuplicateEvent error and leaves the log untouched. Events are immutable
// after insertion.
func (tl *Timeline) AddEvent(ev temporal.Event) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if _, exists := tl.events[ev.ID]; exists {
		return temporal.NewDuplicateEventError(tl.id, ev.ID)
	}

	tl.events[ev.ID] = ev

	// Upper-bound insertion point: after all events with timestamp <= ev's.
	// This keeps equal timestamps in insertion order without a full re-sort.
	idx := sort.Search(len(tl.ordered), func(i int) bool {
		return tl.ordered[i].Timestamp.After(ev.Timestamp)
	})
	tl.ordered = append(tl.ordered, temporal.Event{})
	copy(tl.ordered[idx+1:], tl.ordered[idx:])
	tl.ordered[idx] = ev

	tl.meta.Version++
	return nil
}

// Event returns the event with the given id from the local log.
func (tl *Timeline) Event(id string) (temporal.Event, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	ev, ok := tl.events[id]
	return ev, ok
}

// Events returns a copy of the local log in ascending timestamp order.
func (tl *Timeline) Events() []temporal.Event {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	return append([]temporal.Event(nil), tl.ordered...)
}

// EventCount returns the number of locally recorded events.
func (tl *Timeline) EventCount() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	return len(tl.ordered)
}

// EventsByID returns a snapshot of the local event table keyed by id.
func (tl *Timeline) EventsByID() map[string]temporal.Event {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	out := make(map[string]temporal.Event, len(tl.events))
	for id, ev := range tl.events {
		out[id] = ev
	}
	return out
}

// EventsInRange returns all local events whose timestamp falls within r,
// in ascending timestamp order.
//
// The sorted log makes this O(log n + k): binary search to the first
// candidate, then a forward scan over the k matches.
func (tl *Timeline) EventsInRange(r temporal.Range) ([]temporal.Event, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	tl.mu.RLock()
	defer tl.mu.RUnlock()

	start := sort.Search(len(tl.ordered), func(i int) bool {
		return !tl.ordered[i].Timestamp.Before(r.Start)
	})

	var out []temporal.Event
	for i := start; i < len(tl.ordered); i++ {
		if !r.Contains(tl.ordered[i].Timestamp) {
			break
		}
		out = append(out, tl.ordered[i])
	}
	return out, nil
}

// earliestEventTime returns the timestamp of the oldest local event.
func (tl *Timeline) earliestEventTime() (time.Time, bool) {
	if len(tl.ordered) == 0 {
		return time.Time{}, false
	}
	return tl.ordered[0].Timestamp, true
}
