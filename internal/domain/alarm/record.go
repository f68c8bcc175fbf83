package alarm

import (
	"context"
	"time"
)

// ID identifies a registered record. Zero means not registered.
type ID uint64

// Action is the callback run when a record activates.
// Arguments are captured by the closure at registration time.
type Action func(ctx context.Context) error

// Predicate is a custom activation condition over (previous, current) sample values.
type Predicate func(previous, current time.Duration) bool

// Record is an alarm attached to a stopwatch.
type Record struct {
	// ID is assigned by the registry on registration.
	ID ID
	// Threshold is the optional absolute trigger value. Nil means absent.
	Threshold *time.Duration
	// Predicate is the optional custom condition. Nil means absent.
	Predicate Predicate
	// Action is invoked synchronously on activation.
	Action Action
	// RemoveOnFire removes the record from its registry after it activates.
	RemoveOnFire bool
	// Tag is a caller-defined label; it is not unique.
	Tag string
	// Fired reports whether the record activated since the last reset.
	Fired bool
	// Enabled records are evaluated; disabled ones are skipped entirely.
	Enabled bool
}

// At returns an optional threshold holding value.
func At(value time.Duration) *time.Duration {
	return &value
}

// NewThreshold builds an enabled record that fires once the value passes threshold.
func NewThreshold(tag string, threshold time.Duration, action Action) *Record {
	return &Record{
		Threshold: At(threshold),
		Action:    action,
		Tag:       tag,
		Enabled:   true,
	}
}

// NewConditional builds an enabled record driven by predicate.
func NewConditional(tag string, predicate Predicate, action Action) *Record {
	return &Record{
		Predicate: predicate,
		Action:    action,
		Tag:       tag,
		Enabled:   true,
	}
}

// Crossing returns a predicate that holds whenever a sample transition moves
// into a different multiple of step, in either direction. A non-positive step never holds.
//
// Buckets are floored toward negative infinity, so [-step, 0) and [0, step) are
// distinct and a move from -step/2 to step/2 fires. Comparing truncated
// quotients would merge (-step, step) into one bucket around zero and miss it.
func Crossing(step time.Duration) Predicate {
	return func(previous, current time.Duration) bool {
		if step <= 0 {
			return false
		}

		return floorDiv(previous, step) != floorDiv(current, step)
	}
}

// floorDiv divides rounding toward negative infinity so crossings below zero are detected.
func floorDiv(value, step time.Duration) time.Duration {
	q := value / step
	if value%step != 0 && value < 0 {
		q--
	}

	return q
}

// ThresholdReached reports whether current has strictly passed the threshold in
// the given direction. Reverse engines count down, so they pass it from above.
func (r *Record) ThresholdReached(current time.Duration, reverse bool) bool {
	if r.Threshold == nil {
		return false
	}

	if reverse {
		return current < *r.Threshold
	}

	return current > *r.Threshold
}

// Clone returns a copy that does not share the threshold pointer.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r
	if r.Threshold != nil {
		cloned.Threshold = At(*r.Threshold)
	}

	return &cloned
}
