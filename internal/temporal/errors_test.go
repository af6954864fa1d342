package temporal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message_IncludesIdentifiers(t *testing.T) {
	err := NewDuplicateEventError("main", "evt-1")
	assert.Contains(t, err.Error(), "DUPLICATE_EVENT")
	assert.Contains(t, err.Error(), "timeline=main")
	assert.Contains(t, err.Error(), "event=evt-1")
}

func TestIsCode_Wrapped(t *testing.T) {
	base := NewUnknownTimelineError("ghost")
	wrapped := fmt.Errorf("dispatch: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeUnknownTimeline))
	assert.False(t, IsCode(wrapped, ErrCodeUnknownEvent))
	assert.Equal(t, ErrCodeUnknownTimeline, CodeOf(wrapped))
}

func TestCodeOf_NonTemporalError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestNewForkPointOutOfOrderError_Fields(t *testing.T) {
	err := NewForkPointOutOfOrderError("main", ts("2024-01-01T09:00:00Z"), ts("2024-01-01T10:00:00Z"))
	assert.Equal(t, ErrCodeForkPointOutOfOrder, err.Code)
	assert.Equal(t, "main", err.TimelineID)
	assert.Contains(t, err.Error(), "predates")
}
