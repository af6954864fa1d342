package timeline

import (
	"sort"
	"time"

	"github.com/halwest/tapline/internal/temporal"
)

// RecordState appends a (timestamp, state) snapshot to an entity's history.
//
// The full history is retained: prior entries are never overwritten, and the
// per-entity slice stays sorted by timestamp (ties keep insertion order).
func (tl *Timeline) RecordState(entityID string, state any, at time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	snap := temporal.StateSnapshot{Timestamp: at, State: state}
	history := tl.states[entityID]

	idx := sort.Search(len(history), func(i int) bool {
		return history[i].Timestamp.After(at)
	})
	history = append(history, temporal.StateSnapshot{})
	copy(history[idx+1:], history[idx:])
	history[idx] = snap

	tl.states[entityID] = history
	tl.meta.Version++
}

// StateAt returns the most recent snapshot with timestamp <= queryTime for
// the entity: "last write before or at this instant."
//
// If the local history has no qualifying entry and this timeline was forked,
// the query is delegated to the parent, recursively across arbitrarily many
// fork levels. Delegated queries are evaluated no later than the fork point,
// so writes the parent receives after the fork never leak into the child.
//
// Returns ok=false (not an error) when neither the local history nor any
// ancestor has a qualifying entry.
func (tl *Timeline) StateAt(entityID string, queryTime time.Time) (temporal.StateSnapshot, bool) {
	tl.mu.RLock()
	snap, ok := tl.localStateAt(entityID, queryTime)
	parent := tl.parent
	forkPoint := tl.forkPoint
	forked := tl.forked
	tl.mu.RUnlock()

	if ok {
		return snap, true
	}
	if !forked || parent == nil {
		return temporal.StateSnapshot{}, false
	}

	// Parent lock is taken inside the recursive call, after releasing ours.
	delegated := queryTime
	if forkPoint.Before(delegated) {
		delegated = forkPoint
	}
	return parent.StateAt(entityID, delegated)
}

// localStateAt performs the binary search over the entity's local history.
// Caller must hold at least a read lock.
func (tl *Timeline) localStateAt(entityID string, queryTime time.Time) (temporal.StateSnapshot, bool) {
	history := tl.states[entityID]
	if len(history) == 0 {
		return temporal.StateSnapshot{}, false
	}

	// First index strictly after queryTime; the answer sits just before it.
	idx := sort.Search(len(history), func(i int) bool {
		return history[i].Timestamp.After(queryTime)
	})
	if idx == 0 {
		return temporal.StateSnapshot{}, false
	}
	return history[idx-1], true
}

// StateHistory returns a copy of an entity's local snapshot history in
// ascending timestamp order. Ancestor history is not included.
func (tl *Timeline) StateHistory(entityID string) []temporal.StateSnapshot {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	return append([]temporal.StateSnapshot(nil), tl.states[entityID]...)
}

// Entities returns the entity ids with locally recorded state.
func (tl *Timeline) Entities() []string {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	out := make([]string, 0, len(tl.states))
	for id := range tl.states {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
