package harness

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/halwest/tapline/internal/engine"
	"github.com/halwest/tapline/internal/temporal"
)

// chainDepthLimit bounds chain traversal during assertion checks.
const chainDepthLimit = 25

// checkAssertions evaluates every assertion and returns one failure message
// per violated assertion. Engine errors during a check count as failures of
// that assertion, not as run aborts.
func checkAssertions(eng *engine.Engine, scenario *Scenario) []string {
	var failures []string
	fail := func(i int, format string, args ...any) {
		failures = append(failures, fmt.Sprintf("assertions[%d]: %s", i, fmt.Sprintf(format, args...)))
	}

	for i, a := range scenario.Assertions {
		timelineID := timelineOrMain(a.Timeline)

		switch a.Type {
		case AssertStateAt:
			at, err := parseTime(a.At)
			if err != nil {
				fail(i, "%v", err)
				continue
			}
			snap, found, err := eng.StateAt(timelineID, a.Entity, at)
			if err != nil {
				fail(i, "state_at: %v", err)
				continue
			}
			switch {
			case a.Absent && found:
				fail(i, "expected no state for %q at %s, got %v", a.Entity, a.At, snap.State)
			case !a.Absent && !found:
				fail(i, "expected state %v for %q at %s, got none", a.Expect, a.Entity, a.At)
			case !a.Absent && !reflect.DeepEqual(snap.State, a.Expect):
				fail(i, "expected state %v for %q at %s, got %v", a.Expect, a.Entity, a.At, snap.State)
			}

		case AssertEventsInRange:
			start, err := parseTime(a.Start)
			if err != nil {
				fail(i, "%v", err)
				continue
			}
			end, err := parseTime(a.End)
			if err != nil {
				fail(i, "%v", err)
				continue
			}
			r := temporal.Range{Start: start, End: end, Inclusive: true}
			if a.Inclusive != nil {
				r.Inclusive = *a.Inclusive
			}
			events, err := eng.EventsInRange(timelineID, r)
			if err != nil {
				fail(i, "events_in_range: %v", err)
				continue
			}
			if len(events) != a.Count {
				fail(i, "expected %d events in [%s, %s], got %d", a.Count, a.Start, a.End, len(events))
			}

		case AssertCausalChainContains:
			chains, err := eng.CausalChain(timelineID, a.Event, chainDepthLimit)
			if err != nil {
				fail(i, "causal_chain_contains: %v", err)
				continue
			}
			matched := false
			for _, chain := range chains {
				if slices.Equal(chain, a.Chain) {
					matched = true
					break
				}
			}
			if !matched {
				fail(i, "no chain from %q equals %v, got %v", a.Event, a.Chain, chains)
			}

		case AssertInferenceExcludes:
			inferences, err := eng.InferCausality(timelineID, a.Event, a.CandidateIDs, a.Threshold)
			if err != nil {
				fail(i, "inference_excludes: %v", err)
				continue
			}
			for _, inf := range inferences {
				if inf.Event.ID == a.Excluded {
					fail(i, "inference for %q returned excluded candidate %q (confidence %.3f)",
						a.Event, a.Excluded, inf.Confidence)
					break
				}
			}
		}
	}

	return failures
}
