package tap

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/halwest/tapline/internal/temporal"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// The canonical form of an outgoing message must be stable byte for byte,
// since clients may hash or sign it.
func TestGolden_QueryMessageCanonical(t *testing.T) {
	msg := NewQueryMessage(Query{
		QueryType: QueryStateAtTime,
		Context:   testContext(),
		QueryTime: tsp("2024-01-01T10:08:00Z"),
		EntityID:  "agent_memory",
	})

	raw, err := temporal.MarshalCanonical(msg.ToMap())
	require.NoError(t, err)

	newGoldie(t).Assert(t, "query_state_at", raw)
}

func TestGolden_OperationMessageCanonical(t *testing.T) {
	msg := NewOperationMessage(Operation{
		OperationType: OpForkTimeline,
		Context:       testContext(),
		NewTimelineID: "branch",
		ForkPoint:     tsp("2024-01-01T10:05:00Z"),
		Reason:        "exploration",
	})

	raw, err := temporal.MarshalCanonical(msg.ToMap())
	require.NoError(t, err)

	newGoldie(t).Assert(t, "operation_fork", raw)
}

func TestGolden_StateAtResponse(t *testing.T) {
	d := seededDispatcher(t)

	out, err := d.DispatchRaw(context.Background(), []byte(validQueryJSON))
	require.NoError(t, err)

	newGoldie(t).Assert(t, "response_state_at", out)
}

func TestGolden_CausalChainResponse(t *testing.T) {
	d := seededDispatcher(t)

	raw := []byte(`{
		"protocol": "TAP",
		"version": "1.0.0",
		"temporal_query": {
			"query_type": "causal_chain",
			"temporal_context": {
				"current_time": "2024-01-01T10:10:00Z",
				"timeline_id": "main",
				"temporal_resolution": "second"
			},
			"event_id": "error"
		}
	}`)

	out, err := d.DispatchRaw(context.Background(), raw)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "response_causal_chain", out)
}

func TestGolden_UnknownTimelineResponse(t *testing.T) {
	d := seededDispatcher(t)

	raw := []byte(`{
		"protocol": "TAP",
		"version": "1.0.0",
		"temporal_query": {
			"query_type": "timeline_metadata",
			"temporal_context": {
				"current_time": "2024-01-01T10:10:00Z",
				"timeline_id": "ghost",
				"temporal_resolution": "second"
			}
		}
	}`)

	out, err := d.DispatchRaw(context.Background(), raw)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "response_unknown_timeline", out)
}
