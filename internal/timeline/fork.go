package timeline

import (
	"time"

	"github.com/halwest/tapline/internal/temporal"
)

// Fork creates a child timeline that diverges from this one at forkPoint.
//
// The child starts with empty local event and state tables and a read-only
// back-reference to the parent: nothing is copied. Pre-fork history reaches
// the child through query delegation, which is what makes branching cheap.
//
// The fork is atomic with respect to the parent's tables at the instant of
// the call. Afterward the two timelines are fully independent: parent writes
// never reach the child and child writes never back-propagate.
//
// The fork point must not predate the parent's recorded history: it is
// rejected with a ForkPointOutOfOrder error when it falls before the
// parent's earliest event or before the parent's own fork point. The policy
// is explicit rejection, never silent truncation.
//
// The parent transitions to the diverging state and records a
// DivergencePoint with the supplied reason.
func (tl *Timeline) Fork(childID string, forkPoint time.Time, reason string) (*Timeline, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if earliest, ok := tl.earliestEventTime(); ok && forkPoint.Before(earliest) {
		return nil, temporal.NewForkPointOutOfOrderError(tl.id, forkPoint, earliest)
	}
	if tl.forked && forkPoint.Before(tl.forkPoint) {
		return nil, temporal.NewForkPointOutOfOrderError(tl.id, forkPoint, tl.forkPoint)
	}

	child := &Timeline{
		id:        childID,
		events:    make(map[string]temporal.Event),
		states:    make(map[string][]temporal.StateSnapshot),
		parent:    tl,
		forkPoint: forkPoint,
		forked:    true,
		meta:      temporal.Metadata{State: temporal.TimelineStable},
	}

	tl.meta.State = temporal.TimelineDiverging
	tl.meta.Version++
	tl.meta.DivergencePoints = append(tl.meta.DivergencePoints, temporal.DivergencePoint{
		Timestamp: forkPoint,
		Reason:    reason,
	})

	return child, nil
}
