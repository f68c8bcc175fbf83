package stopwatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/oshokin/alarm-timer/internal/logger"
)

// DefaultInterval is the sampling period of the background goroutine.
const DefaultInterval = 10 * time.Millisecond

var (
	// ErrTerminated is returned when a shut down or failed engine is asked to start.
	ErrTerminated = errors.New("stopwatch engine is terminated")
	// ErrSamplerFailed wraps the panic value that killed the sampling goroutine.
	ErrSamplerFailed = errors.New("stopwatch sampler failed")
)

// ResetListener is notified after every Reset.
// The alarm registry implements it to clear fired flags.
type ResetListener interface {
	ResetAllFired()
}

// Sample is the pair of values produced by one sampling tick.
type Sample struct {
	// Previous is the value before the tick.
	Previous time.Duration
	// Current is the value after the tick.
	Current time.Duration
	// Direction is the accumulation direction of the engine.
	Direction Direction
}

// Snapshot is a consistent read of the engine state.
type Snapshot struct {
	// StartValue is the value Reset restores.
	StartValue time.Duration
	// Current is the elapsed time value.
	Current time.Duration
	// Direction is fixed at construction.
	Direction Direction
	// Status is the lifecycle status.
	Status Status
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterval overrides DefaultInterval. Non-positive values are ignored.
func WithInterval(interval time.Duration) Option {
	return func(e *Engine) {
		if interval > 0 {
			e.interval = interval
		}
	}
}

// WithClock sets the wall clock the engine samples. Used by tests with clock.NewMock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// Engine is a pausable stopwatch whose value is advanced by a background goroutine.
// All methods are safe for concurrent use.
type Engine struct {
	// clock is the wall-clock source used to compute sampling deltas.
	clock clock.Clock
	// interval is the period between sampling ticks.
	interval time.Duration
	// direction decides whether deltas are added or subtracted.
	direction Direction
	// done is closed when the sampling goroutine exits.
	done chan struct{}

	// mu guards every field below.
	mu sync.Mutex
	// startValue is restored by Reset.
	startValue time.Duration
	// current is the authoritative elapsed time value.
	current time.Duration
	// previous is the value before the latest tick.
	previous time.Duration
	// running reports whether time is advancing.
	running bool
	// lastSample is the wall-clock instant of the latest tick or Start.
	lastSample time.Time
	// fresh is set by a tick and consumed by ConsumeSample.
	fresh bool
	// alive becomes false on Shutdown or sampler failure.
	alive bool
	// err holds the sampler failure, if any.
	err error
	// listeners are notified on Reset.
	listeners []ResetListener
}

// New creates a stopped engine holding startValue and spawns its sampler.
// The sampler logs through ctx and stops when ctx is cancelled.
func New(ctx context.Context, startValue time.Duration, direction Direction, opts ...Option) *Engine {
	e := &Engine{
		clock:      clock.New(),
		interval:   DefaultInterval,
		direction:  direction,
		done:       make(chan struct{}),
		startValue: startValue,
		current:    startValue,
		previous:   startValue,
		alive:      true,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.lastSample = e.clock.Now()

	go e.run(logger.WithName(ctx, "stopwatch"))

	return e
}

// Start resumes the engine. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.alive {
		return ErrTerminated
	}

	if e.running {
		return nil
	}

	e.running = true
	e.lastSample = e.clock.Now()

	return nil
}

// Stop pauses the engine, freezing its value. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.running = false
}

// Reset restores the start value without touching the running flag
// and then clears the fired flags of every attached listener.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.current = e.startValue
	listeners := make([]ResetListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		l.ResetAllFired()
	}
}

// SetStartValue changes the value used by future resets only.
func (e *Engine) SetStartValue(v time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.startValue = v
}

// Attach registers a listener notified on every Reset.
func (e *Engine) Attach(l ResetListener) {
	if l == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, l)
}

// Time returns the current elapsed time value.
func (e *Engine) Time() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current
}

// Direction returns the accumulation direction.
func (e *Engine) Direction() Direction {
	return e.direction
}

// ConsumeSample returns the latest tick transition and clears the fresh flag.
// The boolean is false when no tick happened since the previous call.
func (e *Engine) ConsumeSample() (Sample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.fresh {
		return Sample{}, false
	}

	e.fresh = false

	return Sample{
		Previous:  e.previous,
		Current:   e.current,
		Direction: e.direction,
	}, true
}

// Status reports the lifecycle status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.statusLocked()
}

// Err returns the sampler failure, or nil if the sampler did not fail.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.err
}

// Snapshot returns a consistent view of the engine.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		StartValue: e.startValue,
		Current:    e.current,
		Direction:  e.direction,
		Status:     e.statusLocked(),
	}
}

// Shutdown asks the sampler to exit. It does not wait; use Done for that.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.alive = false
}

// Done is closed once the sampling goroutine has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) statusLocked() Status {
	switch {
	case e.err != nil:
		return StatusFailed
	case !e.alive:
		return StatusShutdown
	case e.running:
		return StatusRunning
	default:
		return StatusStopped
	}
}

// run is the sampling loop. It exits on Shutdown, ctx cancellation or a failed tick.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := e.clock.Ticker(e.interval)
	defer ticker.Stop()

	logger.DebugKV(ctx, "Sampler started", "interval", e.interval.String(), "direction", e.direction.String())

	for {
		select {
		case <-ctx.Done():
			e.Shutdown()
			logger.Debug(ctx, "Context canceled, sampler exiting")

			return
		case <-ticker.C:
			if !e.tick(ctx) {
				return
			}
		}
	}
}

// tick performs one sampling step and reports whether the loop should continue.
func (e *Engine) tick(ctx context.Context) (alive bool) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(ctx, fmt.Errorf("%w: %v", ErrSamplerFailed, r))

			alive = false
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.alive {
		logger.Debug(ctx, "Engine shut down, sampler exiting")

		return false
	}

	if !e.running {
		return true
	}

	now := e.clock.Now()
	delta := now.Sub(e.lastSample)

	e.previous = e.current
	if e.direction == Reverse {
		e.current -= delta
	} else {
		e.current += delta
	}

	e.lastSample = now
	e.fresh = true

	return true
}

// fail records a sampler failure so callers observe StatusFailed instead of a frozen value.
func (e *Engine) fail(ctx context.Context, err error) {
	e.mu.Lock()
	e.err = err
	e.alive = false
	e.running = false
	e.mu.Unlock()

	logger.ErrorKV(ctx, "Sampler terminated", "error", err)
}
