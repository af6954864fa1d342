package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halwest/tapline/internal/temporal"
	"github.com/halwest/tapline/internal/testutil"
)

func ts(s string) time.Time {
	return testutil.MustTime(s)
}

func evt(id string, at time.Time, causes ...string) temporal.Event {
	if len(causes) == 0 {
		return testutil.Event(id, "test", at)
	}
	return testutil.Event(id, "test", at, testutil.WithCauses(causes...))
}

func TestEngine_New_SeedsMainTimeline(t *testing.T) {
	e := New()
	assert.True(t, e.HasTimeline(MainTimelineID))
	assert.Equal(t, []string{"main"}, e.TimelineIDs())
}

func TestEngine_CreateTimeline_Duplicate(t *testing.T) {
	e := New()
	require.NoError(t, e.CreateTimeline("branch"))

	err := e.CreateTimeline("branch")
	require.Error(t, err)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeDuplicateTimeline))

	err = e.CreateTimeline(MainTimelineID)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeDuplicateTimeline))
}

func TestEngine_AddEvent_UnknownTimeline(t *testing.T) {
	e := New()
	_, err := e.AddEvent("ghost", evt("e1", ts("2024-01-01T10:00:00Z")))
	require.Error(t, err)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownTimeline))
}

func TestEngine_AddEvent_AssignsIDWhenEmpty(t *testing.T) {
	e := New(WithEventIDGenerator(NewFixedGenerator("gen-1", "gen-2")))

	stored, err := e.AddEvent(MainTimelineID, temporal.Event{Timestamp: ts("2024-01-01T10:00:00Z"), Type: "tick"})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", stored.ID)

	stored, err = e.AddEvent(MainTimelineID, temporal.Event{Timestamp: ts("2024-01-01T10:01:00Z"), Type: "tick"})
	require.NoError(t, err)
	assert.Equal(t, "gen-2", stored.ID)
}

func TestEngine_AddEvent_KeepsSuppliedID(t *testing.T) {
	e := New()
	stored, err := e.AddEvent(MainTimelineID, evt("explicit", ts("2024-01-01T10:00:00Z")))
	require.NoError(t, err)
	assert.Equal(t, "explicit", stored.ID)

	_, err = e.AddEvent(MainTimelineID, evt("explicit", ts("2024-01-01T11:00:00Z")))
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeDuplicateEvent))
}

func TestEngine_EventsInRange_Delegates(t *testing.T) {
	e := New()
	_, err := e.AddEvent(MainTimelineID, evt("e1", ts("2024-01-01T10:00:00Z")))
	require.NoError(t, err)
	_, err = e.AddEvent(MainTimelineID, evt("e2", ts("2024-01-01T12:00:00Z")))
	require.NoError(t, err)

	r, err := temporal.NewRange(ts("2024-01-01T09:00:00Z"), ts("2024-01-01T11:00:00Z"))
	require.NoError(t, err)

	events, err := e.EventsInRange(MainTimelineID, r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)

	_, err = e.EventsInRange("ghost", r)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownTimeline))
}

func TestEngine_StateAt_Delegates(t *testing.T) {
	e := New()
	require.NoError(t, e.RecordState(MainTimelineID, "agent_memory", "100MB", ts("2024-01-01T10:00:00Z")))
	require.NoError(t, e.RecordState(MainTimelineID, "agent_memory", "800MB", ts("2024-01-01T10:05:00Z")))
	require.NoError(t, e.RecordState(MainTimelineID, "agent_memory", "1024MB", ts("2024-01-01T10:10:00Z")))

	snap, ok, err := e.StateAt(MainTimelineID, "agent_memory", ts("2024-01-01T10:08:00Z"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "800MB", snap.State)

	_, ok, err = e.StateAt(MainTimelineID, "agent_memory", ts("2024-01-01T09:00:00Z"))
	require.NoError(t, err)
	assert.False(t, ok, "no data is not an error")

	_, _, err = e.StateAt("ghost", "agent_memory", ts("2024-01-01T10:00:00Z"))
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownTimeline))
}

func TestEngine_ForkTimeline(t *testing.T) {
	e := New()
	require.NoError(t, e.RecordState(MainTimelineID, "agent", "v1", ts("2024-01-01T10:00:00Z")))

	require.NoError(t, e.ForkTimeline(MainTimelineID, "branch", ts("2024-01-01T10:05:00Z"), "exploration"))
	assert.True(t, e.HasTimeline("branch"))

	snap, ok, err := e.StateAt("branch", "agent", ts("2024-01-01T10:01:00Z"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", snap.State)

	err = e.ForkTimeline("ghost", "other", ts("2024-01-01T10:05:00Z"), "")
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownTimeline))

	err = e.ForkTimeline(MainTimelineID, "branch", ts("2024-01-01T10:05:00Z"), "")
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeDuplicateTimeline))
}

func TestEngine_DeleteTimeline_Rules(t *testing.T) {
	e := New()
	require.NoError(t, e.ForkTimeline(MainTimelineID, "branch", ts("2024-01-01T10:00:00Z"), "exploration"))

	err := e.DeleteTimeline(MainTimelineID)
	require.Error(t, err, "main cannot be deleted")

	err = e.DeleteTimeline("ghost")
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownTimeline))

	// A parent with live children cannot be deleted; the leaf can.
	require.NoError(t, e.ForkTimeline("branch", "leaf", ts("2024-01-01T10:05:00Z"), "deeper"))
	err = e.DeleteTimeline("branch")
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeTimelineInUse))

	require.NoError(t, e.DeleteTimeline("leaf"))
	require.NoError(t, e.DeleteTimeline("branch"))
	assert.False(t, e.HasTimeline("branch"))
}

func TestEngine_CausalChain(t *testing.T) {
	e := New()
	_, err := e.AddEvent(MainTimelineID, evt("start", ts("2024-01-01T10:00:00Z")))
	require.NoError(t, err)
	_, err = e.AddEvent(MainTimelineID, evt("process", ts("2024-01-01T10:05:00Z"), "start"))
	require.NoError(t, err)
	_, err = e.AddEvent(MainTimelineID, evt("error", ts("2024-01-01T10:10:00Z"), "process"))
	require.NoError(t, err)

	paths, err := e.CausalChain(MainTimelineID, "error", 10)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"error", "process", "start"}, paths[0])

	_, err = e.CausalChain(MainTimelineID, "ghost", 10)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownEvent))

	_, err = e.CausalChain("ghost", "error", 10)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownTimeline))
}

func TestEngine_InferCausality(t *testing.T) {
	e := New()
	_, err := e.AddEvent(MainTimelineID, evt("cause", ts("2024-01-01T10:00:00Z")))
	require.NoError(t, err)
	_, err = e.AddEvent(MainTimelineID, evt("late", ts("2024-01-01T11:00:00Z")))
	require.NoError(t, err)
	_, err = e.AddEvent(MainTimelineID, evt("effect", ts("2024-01-01T10:30:00Z")))
	require.NoError(t, err)

	results, err := e.InferCausality(MainTimelineID, "effect", []string{"cause", "late"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cause", results[0].Event.ID)

	_, err = e.InferCausality(MainTimelineID, "effect", []string{"ghost"}, 0)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownEvent))

	_, err = e.InferCausality(MainTimelineID, "ghost", nil, 0)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeUnknownEvent))
}

func TestEngine_Metadata(t *testing.T) {
	e := New()
	meta, err := e.Metadata(MainTimelineID)
	require.NoError(t, err)
	assert.Equal(t, temporal.TimelineStable, meta.State)

	require.NoError(t, e.ForkTimeline(MainTimelineID, "branch", ts("2024-01-01T10:00:00Z"), "exploration"))
	meta, err = e.Metadata(MainTimelineID)
	require.NoError(t, err)
	assert.Equal(t, temporal.TimelineDiverging, meta.State)
	require.Len(t, meta.DivergencePoints, 1)
	assert.Equal(t, "exploration", meta.DivergencePoints[0].Reason)
}
