// Package stopwatch implements a pausable, resettable elapsed-time engine.
//
// An Engine owns a background goroutine that wakes every sampling interval
// and, while running, adds (Forward) or subtracts (Reverse) the wall-clock
// delta since the previous tick. Every tick also marks a fresh sample that
// alarm evaluation consumes exactly once through ConsumeSample.
//
// The sampler exits after Shutdown, when its context is cancelled, or when a
// tick panics. In the last case the engine reports StatusFailed and Err
// returns the cause instead of silently freezing.
package stopwatch
