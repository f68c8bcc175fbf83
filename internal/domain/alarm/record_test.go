package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRecordClone verifies that Clone copies fields, detaches the threshold and handles nil.
func TestRecordClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Record)(nil).Clone())

	r := NewThreshold("lap", 3*time.Second, nil)
	r.Fired = true

	c := r.Clone()
	require.Equal(t, r.Tag, c.Tag)
	require.True(t, c.Fired)
	require.True(t, c.Enabled)
	require.Equal(t, *r.Threshold, *c.Threshold)
	require.NotSame(t, r.Threshold, c.Threshold)

	*c.Threshold = time.Minute
	require.Equal(t, 3*time.Second, *r.Threshold)
}

// TestThresholdReached checks the strict comparison in both directions.
func TestThresholdReached(t *testing.T) {
	t.Parallel()

	r := NewThreshold("three", 3*time.Second, nil)

	require.False(t, r.ThresholdReached(2*time.Second, false))
	require.False(t, r.ThresholdReached(3*time.Second, false), "equal value must not activate")
	require.True(t, r.ThresholdReached(3*time.Second+time.Millisecond, false))

	require.False(t, r.ThresholdReached(4*time.Second, true))
	require.False(t, r.ThresholdReached(3*time.Second, true))
	require.True(t, r.ThresholdReached(2*time.Second, true))

	require.False(t, NewConditional("none", nil, nil).ThresholdReached(time.Hour, false))
}

// TestCrossing checks multiple-of-step detection, including negative values.
func TestCrossing(t *testing.T) {
	t.Parallel()

	second := Crossing(time.Second)

	require.False(t, second(100*time.Millisecond, 900*time.Millisecond))
	require.True(t, second(990*time.Millisecond, 1010*time.Millisecond))
	require.True(t, second(2100*time.Millisecond, 1900*time.Millisecond))
	require.True(t, second(100*time.Millisecond, -100*time.Millisecond))
	require.True(t, second(-500*time.Millisecond, 500*time.Millisecond), "zero separates two buckets")
	require.False(t, second(-100*time.Millisecond, -900*time.Millisecond))

	require.False(t, Crossing(0)(0, time.Hour))
}
