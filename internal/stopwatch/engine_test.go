package stopwatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// idleInterval keeps the mock ticker from firing so tests drive tick directly.
const idleInterval = time.Hour

// newMockEngine builds an engine on a mock clock whose sampler never wakes on its own.
func newMockEngine(t *testing.T, start time.Duration, direction Direction) (*Engine, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	e := New(context.Background(), start, direction, WithClock(mock), WithInterval(idleInterval))

	t.Cleanup(e.Shutdown)

	return e, mock
}

// countingListener records how many times ResetAllFired was called.
type countingListener struct {
	calls atomic.Int32
}

func (c *countingListener) ResetAllFired() {
	c.calls.Add(1)
}

// panickingClock panics in Now once armed.
type panickingClock struct {
	*clock.Mock

	armed atomic.Bool
}

func (p *panickingClock) Now() time.Time {
	if p.armed.Load() {
		panic("wall clock unavailable")
	}

	return p.Mock.Now()
}

// TestEngine_ForwardAccumulates checks that ticks add wall-clock deltas while running.
func TestEngine_ForwardAccumulates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, mock := newMockEngine(t, time.Second, Forward)

	require.Equal(t, StatusStopped, e.Status())
	require.NoError(t, e.Start())
	require.Equal(t, StatusRunning, e.Status())

	mock.Add(250 * time.Millisecond)
	require.True(t, e.tick(ctx))
	require.Equal(t, 1250*time.Millisecond, e.Time())

	mock.Add(750 * time.Millisecond)
	require.True(t, e.tick(ctx))
	require.Equal(t, 2*time.Second, e.Time())

	sample, ok := e.ConsumeSample()
	require.True(t, ok)
	require.Equal(t, 1250*time.Millisecond, sample.Previous)
	require.Equal(t, 2*time.Second, sample.Current)
	require.Equal(t, Forward, sample.Direction)
}

// TestEngine_ReverseRegresses checks that a Reverse engine subtracts deltas and may go negative.
func TestEngine_ReverseRegresses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, mock := newMockEngine(t, time.Second, Reverse)

	require.NoError(t, e.Start())

	mock.Add(1500 * time.Millisecond)
	require.True(t, e.tick(ctx))
	require.Equal(t, -500*time.Millisecond, e.Time())
}

// TestEngine_NoProgressWhileStopped verifies stop freezes the value and start discards the paused span.
func TestEngine_NoProgressWhileStopped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, mock := newMockEngine(t, 0, Forward)

	require.NoError(t, e.Start())
	mock.Add(time.Second)
	require.True(t, e.tick(ctx))

	before := e.Time()
	e.Stop()
	e.Stop()
	require.Equal(t, before, e.Time())

	mock.Add(10 * time.Second)
	require.True(t, e.tick(ctx))
	require.Equal(t, before, e.Time())

	_, ok := e.ConsumeSample()
	require.True(t, ok)

	_, ok = e.ConsumeSample()
	require.False(t, ok, "stopped ticks must not publish a fresh sample")

	// Resuming must not apply the delta accumulated while paused.
	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	mock.Add(100 * time.Millisecond)
	require.True(t, e.tick(ctx))
	require.Equal(t, before+100*time.Millisecond, e.Time())
}

// TestEngine_ResetRestoresStartValue checks reset semantics and listener notification.
func TestEngine_ResetRestoresStartValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, mock := newMockEngine(t, 5*time.Second, Forward)

	listener := new(countingListener)
	e.Attach(listener)
	e.Attach(nil)

	require.NoError(t, e.Start())
	mock.Add(3 * time.Second)
	require.True(t, e.tick(ctx))
	require.Equal(t, 8*time.Second, e.Time())

	e.Reset()
	require.Equal(t, 5*time.Second, e.Time())
	require.Equal(t, StatusRunning, e.Status(), "reset keeps the running flag")
	require.EqualValues(t, 1, listener.calls.Load())

	// A new start value only applies to later resets.
	e.SetStartValue(time.Minute)
	require.Equal(t, 5*time.Second, e.Time())

	e.Stop()
	e.Reset()
	require.Equal(t, time.Minute, e.Time())
	require.Equal(t, StatusStopped, e.Status())
	require.EqualValues(t, 2, listener.calls.Load())
}

// TestEngine_ShutdownTerminatesSampler checks that shutdown is observed on the next tick.
func TestEngine_ShutdownTerminatesSampler(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	e := New(context.Background(), 0, Forward, WithClock(mock), WithInterval(10*time.Millisecond))

	require.NoError(t, e.Start())
	e.Shutdown()
	require.Equal(t, StatusShutdown, e.Status())
	require.NoError(t, e.Err())
	require.ErrorIs(t, e.Start(), ErrTerminated)

	require.Eventually(t, func() bool {
		mock.Add(10 * time.Millisecond)

		select {
		case <-e.Done():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

// TestEngine_ContextCancelStopsSampler checks that cancelling the construction context shuts the engine down.
func TestEngine_ContextCancelStopsSampler(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	e := New(ctx, 0, Forward, WithClock(clock.NewMock()), WithInterval(idleInterval))

	cancel()

	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("sampler did not exit after context cancellation")
	}

	require.Equal(t, StatusShutdown, e.Status())
	require.False(t, e.Status().Alive())
}

// TestEngine_PanicMarksFailed checks that a panicking tick exposes the failure instead of freezing silently.
func TestEngine_PanicMarksFailed(t *testing.T) {
	t.Parallel()

	wall := &panickingClock{Mock: clock.NewMock()}
	e := New(context.Background(), 0, Forward, WithClock(wall), WithInterval(10*time.Millisecond))

	require.NoError(t, e.Start())
	wall.armed.Store(true)

	require.Eventually(t, func() bool {
		wall.Add(10 * time.Millisecond)

		select {
		case <-e.Done():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, StatusFailed, e.Status())
	require.ErrorIs(t, e.Err(), ErrSamplerFailed)
	require.ErrorIs(t, e.Start(), ErrTerminated)
}

// TestEngine_RealClock runs the sampler on the wall clock and checks accuracy within a few intervals.
func TestEngine_RealClock(t *testing.T) {
	t.Parallel()

	const run = 200 * time.Millisecond

	forward := New(context.Background(), 0, Forward)
	reverse := New(context.Background(), time.Second, Reverse)

	defer forward.Shutdown()
	defer reverse.Shutdown()

	require.NoError(t, forward.Start())
	require.NoError(t, reverse.Start())
	time.Sleep(run)
	forward.Stop()
	reverse.Stop()

	require.InDelta(t, float64(run), float64(forward.Time()), float64(10*DefaultInterval))
	require.InDelta(t, float64(time.Second-run), float64(reverse.Time()), float64(10*DefaultInterval))

	snapshot := forward.Snapshot()
	require.Equal(t, StatusStopped, snapshot.Status)
	require.Equal(t, forward.Time(), snapshot.Current)
	require.Equal(t, Forward, snapshot.Direction)
	require.Zero(t, snapshot.StartValue)
}

// TestParseDirection checks accepted spellings and rejection of unknown input.
func TestParseDirection(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Direction{
		"":        Forward,
		"forward": Forward,
		"UP":      Forward,
		"reverse": Reverse,
		" down ":  Reverse,
	} {
		got, err := ParseDirection(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParseDirection("sideways")
	require.Error(t, err)
	require.Equal(t, "reverse", Reverse.String())
	require.Equal(t, "failed", StatusFailed.String())
}
