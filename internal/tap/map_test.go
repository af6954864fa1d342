package tap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halwest/tapline/internal/temporal"
)

func TestMessage_ToMap_QueryEnumsRenderAsStrings(t *testing.T) {
	msg := NewQueryMessage(Query{
		QueryType: QueryStateAtTime,
		Context:   testContext(),
		QueryTime: tsp("2024-01-01T10:08:00Z"),
		EntityID:  "agent_memory",
	})

	m := msg.ToMap()
	assert.Equal(t, "TAP", m["protocol"])
	assert.Equal(t, "1.0.0", m["version"])

	q, ok := m["temporal_query"].(map[string]any)
	require.True(t, ok, "nested records render as nested maps")
	assert.Equal(t, "state_at_time", q["query_type"])
	assert.Equal(t, "agent_memory", q["entity_id"])

	cx, ok := q["temporal_context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "second", cx["temporal_resolution"])
	assert.Equal(t, "main", cx["timeline_id"])
	assert.Equal(t, "2024-01-01T10:08:00Z", cx["current_time"])
}

func TestMessage_ToMap_OperationOmitsUnsetFields(t *testing.T) {
	msg := NewOperationMessage(Operation{
		OperationType: OpCreateTimeline,
		Context:       testContext(),
		NewTimelineID: "branch",
	})

	op, ok := msg.ToMap()["temporal_operation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "create_timeline", op["operation_type"])
	assert.Equal(t, "branch", op["new_timeline_id"])
	assert.NotContains(t, op, "event")
	assert.NotContains(t, op, "fork_point")
	assert.NotContains(t, op, "alternative_action")
}

func TestEventToMap_RoundTripsThroughCanonicalJSON(t *testing.T) {
	ev := temporal.Event{
		ID:             "proc-1",
		Timestamp:      ts("2024-01-01T10:05:00Z"),
		Type:           "process",
		AgentID:        "agent-7",
		Data:           map[string]any{"cpu": 0.75},
		Causes:         []string{"start-1"},
		CausalStrength: 0.9,
	}

	m := EventToMap(ev)
	out, err := temporal.MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t,
		`{"agent_id":"agent-7","causal_strength":0.9,"causes":["start-1"],"data":{"cpu":0.75},"event_id":"proc-1","event_type":"process","timestamp":"2024-01-01T10:05:00Z"}`,
		string(out))
}

func TestMetadataToMap(t *testing.T) {
	meta := temporal.Metadata{
		State:   temporal.TimelineDiverging,
		Version: 4,
		DivergencePoints: []temporal.DivergencePoint{
			{Timestamp: ts("2024-01-01T10:05:00Z"), Reason: "exploration"},
		},
	}

	m := MetadataToMap(meta)
	assert.Equal(t, "diverging", m["timeline_state"], "enum fields render as their lowercase tag")
	assert.Equal(t, int64(4), m["version"])

	points, ok := m["divergence_points"].([]any)
	require.True(t, ok)
	require.Len(t, points, 1)
}
