package timeline

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halwest/tapline/internal/temporal"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func evt(id string, at time.Time, causes ...string) temporal.Event {
	return temporal.Event{
		ID:        id,
		Timestamp: at,
		Type:      "test",
		Causes:    causes,
	}
}

func TestTimeline_AddEvent_Duplicate(t *testing.T) {
	tl := New("main")
	require.NoError(t, tl.AddEvent(evt("e1", ts("2024-01-01T10:00:00Z"))))

	err := tl.AddEvent(evt("e1", ts("2024-01-01T11:00:00Z")))
	require.Error(t, err)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeDuplicateEvent))
	assert.Equal(t, 1, tl.EventCount(), "failed insert must not grow the log")
}

func TestTimeline_AddEvent_KeepsSortedOrder(t *testing.T) {
	tl := New("main")

	// Inserted out of order on purpose.
	require.NoError(t, tl.AddEvent(evt("c", ts("2024-01-01T12:00:00Z"))))
	require.NoError(t, tl.AddEvent(evt("a", ts("2024-01-01T10:00:00Z"))))
	require.NoError(t, tl.AddEvent(evt("b", ts("2024-01-01T11:00:00Z"))))

	events := tl.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.Equal(t, "c", events[2].ID)
}

func TestTimeline_AddEvent_TiesKeepInsertionOrder(t *testing.T) {
	tl := New("main")
	at := ts("2024-01-01T10:00:00Z")

	require.NoError(t, tl.AddEvent(evt("first", at)))
	require.NoError(t, tl.AddEvent(evt("second", at)))
	require.NoError(t, tl.AddEvent(evt("third", at)))

	events := tl.Events()
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{events[0].ID, events[1].ID, events[2].ID})
}

func TestTimeline_EventsInRange_InclusiveBounds(t *testing.T) {
	tl := New("main")
	require.NoError(t, tl.AddEvent(evt("before", ts("2024-01-01T09:59:59Z"))))
	require.NoError(t, tl.AddEvent(evt("at-start", ts("2024-01-01T10:00:00Z"))))
	require.NoError(t, tl.AddEvent(evt("inside", ts("2024-01-01T10:30:00Z"))))
	require.NoError(t, tl.AddEvent(evt("at-end", ts("2024-01-01T11:00:00Z"))))
	require.NoError(t, tl.AddEvent(evt("after", ts("2024-01-01T11:00:01Z"))))

	r, err := temporal.NewRange(ts("2024-01-01T10:00:00Z"), ts("2024-01-01T11:00:00Z"))
	require.NoError(t, err)

	events, err := tl.EventsInRange(r)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "at-start", events[0].ID, "inclusive range returns events exactly at the start bound")
	assert.Equal(t, "inside", events[1].ID)
	assert.Equal(t, "at-end", events[2].ID, "inclusive range returns events exactly at the end bound")
}

func TestTimeline_EventsInRange_HalfOpenExcludesEnd(t *testing.T) {
	tl := New("main")
	require.NoError(t, tl.AddEvent(evt("at-start", ts("2024-01-01T10:00:00Z"))))
	require.NoError(t, tl.AddEvent(evt("at-end", ts("2024-01-01T11:00:00Z"))))

	r, err := temporal.NewHalfOpenRange(ts("2024-01-01T10:00:00Z"), ts("2024-01-01T11:00:00Z"))
	require.NoError(t, err)

	events, err := tl.EventsInRange(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "at-start", events[0].ID)
}

func TestTimeline_EventsInRange_InvalidRange(t *testing.T) {
	tl := New("main")
	bad := temporal.Range{Start: ts("2024-01-01T11:00:00Z"), End: ts("2024-01-01T10:00:00Z"), Inclusive: true}

	_, err := tl.EventsInRange(bad)
	require.Error(t, err)
	assert.True(t, temporal.IsCode(err, temporal.ErrCodeInvalidTimeRange))
}

func TestTimeline_EventsInRange_Empty(t *testing.T) {
	tl := New("main")
	r, err := temporal.NewRange(ts("2024-01-01T10:00:00Z"), ts("2024-01-01T11:00:00Z"))
	require.NoError(t, err)

	events, err := tl.EventsInRange(r)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTimeline_Metadata_VersionIncrements(t *testing.T) {
	tl := New("main")
	assert.Equal(t, int64(0), tl.Metadata().Version)
	assert.Equal(t, temporal.TimelineStable, tl.Metadata().State)

	require.NoError(t, tl.AddEvent(evt("e1", ts("2024-01-01T10:00:00Z"))))
	assert.Equal(t, int64(1), tl.Metadata().Version)

	tl.RecordState("agent", "idle", ts("2024-01-01T10:00:00Z"))
	assert.Equal(t, int64(2), tl.Metadata().Version)
}

func TestTimeline_ConcurrentReadsDuringWrites(t *testing.T) {
	tl := New("main")
	base := ts("2024-01-01T10:00:00Z")
	r, err := temporal.NewRange(base, base.Add(time.Hour))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("w%d-%d", n, j)
				_ = tl.AddEvent(evt(id, base.Add(time.Duration(j)*time.Second)))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = tl.EventsInRange(r)
				_, _ = tl.StateAt("agent", base)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*50, tl.EventCount())
}
