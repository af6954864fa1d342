package temporal

import "time"

// Range describes a point or interval in time.
//
// The default is closed on both bounds: Contains(t) holds iff
// Start <= t <= End. Half-open semantics (End excluded) are opt-in via
// HalfOpen; they are a configuration choice, not the default.
type Range struct {
	Start     time.Time `json:"start_time"`
	End       time.Time `json:"end_time"`
	Inclusive bool      `json:"inclusive"`
}

// NewRange builds a closed range over [start, end].
// Returns an InvalidTimeRange error when end precedes start.
func NewRange(start, end time.Time) (Range, error) {
	if end.Before(start) {
		return Range{}, NewInvalidTimeRangeError(start, end)
	}
	return Range{Start: start, End: end, Inclusive: true}, nil
}

// NewHalfOpenRange builds a half-open range over [start, end).
// Returns an InvalidTimeRange error when end precedes start.
func NewHalfOpenRange(start, end time.Time) (Range, error) {
	if end.Before(start) {
		return Range{}, NewInvalidTimeRangeError(start, end)
	}
	return Range{Start: start, End: end, Inclusive: false}, nil
}

// Contains reports whether t falls within the range bounds.
func (r Range) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	if r.Inclusive {
		return !t.After(r.End)
	}
	return t.Before(r.End)
}

// Validate checks the bounds ordering without constructing.
func (r Range) Validate() error {
	if r.End.Before(r.Start) {
		return NewInvalidTimeRangeError(r.Start, r.End)
	}
	return nil
}
