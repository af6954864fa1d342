package testutil

import (
	"time"

	"github.com/halwest/tapline/internal/temporal"
)

// EventOption mutates an event under construction.
type EventOption func(*temporal.Event)

// WithAgent sets the producing agent id.
func WithAgent(agentID string) EventOption {
	return func(ev *temporal.Event) { ev.AgentID = agentID }
}

// WithCauses sets the producer-declared cause ids.
func WithCauses(causes ...string) EventOption {
	return func(ev *temporal.Event) { ev.Causes = causes }
}

// WithData sets the event payload.
func WithData(data map[string]any) EventOption {
	return func(ev *temporal.Event) { ev.Data = data }
}

// WithStrength sets the producer-asserted causal strength.
func WithStrength(strength float64) EventOption {
	return func(ev *temporal.Event) { ev.CausalStrength = strength }
}

// Event builds an event fixture with the given id, type, and timestamp.
func Event(id, eventType string, at time.Time, opts ...EventOption) temporal.Event {
	ev := temporal.Event{
		ID:        id,
		Type:      eventType,
		Timestamp: at,
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return ev
}

// EventAt is Event with an RFC 3339 timestamp literal.
func EventAt(id, eventType, at string, opts ...EventOption) temporal.Event {
	return Event(id, eventType, MustTime(at), opts...)
}
