// Package alarm implements the alarm registry evaluated against stopwatch samples.
//
// The registry keeps records in registration order behind its own mutex.
// Evaluate consumes at most one fresh sample from its source, decides
// activation for each record on a snapshot of the collection and runs
// actions on the caller's goroutine without holding the lock, so actions may
// register or remove records. Failures are isolated per record.
package alarm
