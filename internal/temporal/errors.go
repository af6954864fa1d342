package temporal

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeDuplicateTimeline indicates a timeline id is already registered.
	ErrCodeDuplicateTimeline ErrorCode = "DUPLICATE_TIMELINE"

	// ErrCodeDuplicateEvent indicates an event id already exists on the timeline.
	ErrCodeDuplicateEvent ErrorCode = "DUPLICATE_EVENT"

	// ErrCodeUnknownTimeline indicates the named timeline is not registered.
	ErrCodeUnknownTimeline ErrorCode = "UNKNOWN_TIMELINE"

	// ErrCodeUnknownEvent indicates a referenced event id was not found.
	ErrCodeUnknownEvent ErrorCode = "UNKNOWN_EVENT"

	// ErrCodeInvalidTimeRange indicates a range whose end precedes its start.
	ErrCodeInvalidTimeRange ErrorCode = "INVALID_TIME_RANGE"

	// ErrCodeForkPointOutOfOrder indicates a fork point that predates events
	// required to remain on the parent side.
	ErrCodeForkPointOutOfOrder ErrorCode = "FORK_POINT_OUT_OF_ORDER"

	// ErrCodeTimelineInUse indicates a timeline cannot be deleted because
	// child timelines still reference it.
	ErrCodeTimelineInUse ErrorCode = "TIMELINE_IN_USE"
)

// Error is a local, synchronous, recoverable store failure.
//
// None of these are process-fatal: callers are expected to inspect the code
// and recover. Structured fields identify the affected timeline/event.
type Error struct {
	Code       ErrorCode
	Message    string
	TimelineID string
	EventID    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.TimelineID != "" && e.EventID != "":
		return fmt.Sprintf("%s: %s (timeline=%s, event=%s)", e.Code, e.Message, e.TimelineID, e.EventID)
	case e.TimelineID != "":
		return fmt.Sprintf("%s: %s (timeline=%s)", e.Code, e.Message, e.TimelineID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Returns "" when err is not a temporal.Error.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsCode reports whether err is a temporal.Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewDuplicateTimelineError reports an already-registered timeline id.
func NewDuplicateTimelineError(timelineID string) *Error {
	return &Error{
		Code:       ErrCodeDuplicateTimeline,
		Message:    "timeline id already registered",
		TimelineID: timelineID,
	}
}

// NewDuplicateEventError reports an event id collision on a timeline.
func NewDuplicateEventError(timelineID, eventID string) *Error {
	return &Error{
		Code:       ErrCodeDuplicateEvent,
		Message:    "event id already exists",
		TimelineID: timelineID,
		EventID:    eventID,
	}
}

// NewUnknownTimelineError reports an unregistered timeline id.
func NewUnknownTimelineError(timelineID string) *Error {
	return &Error{
		Code:       ErrCodeUnknownTimeline,
		Message:    "timeline not registered",
		TimelineID: timelineID,
	}
}

// NewUnknownEventError reports a missing event id.
func NewUnknownEventError(timelineID, eventID string) *Error {
	return &Error{
		Code:       ErrCodeUnknownEvent,
		Message:    "event not found",
		TimelineID: timelineID,
		EventID:    eventID,
	}
}

// NewInvalidTimeRangeError reports a range whose end precedes its start.
func NewInvalidTimeRangeError(start, end time.Time) *Error {
	return &Error{
		Code:    ErrCodeInvalidTimeRange,
		Message: fmt.Sprintf("end %s precedes start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)),
	}
}

// NewForkPointOutOfOrderError reports a fork point earlier than the parent's
// recorded history allows.
func NewForkPointOutOfOrderError(timelineID string, forkPoint, earliest time.Time) *Error {
	return &Error{
		Code:       ErrCodeForkPointOutOfOrder,
		Message:    fmt.Sprintf("fork point %s predates earliest recorded event %s", forkPoint.Format(time.RFC3339), earliest.Format(time.RFC3339)),
		TimelineID: timelineID,
	}
}

// NewTimelineInUseError reports a delete attempt on a timeline with children.
func NewTimelineInUseError(timelineID string) *Error {
	return &Error{
		Code:       ErrCodeTimelineInUse,
		Message:    "timeline has forked children and cannot be deleted",
		TimelineID: timelineID,
	}
}
