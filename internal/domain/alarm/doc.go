// Package alarm contains the alarm record value object attached to a stopwatch.
//
// A Record activates when its optional Threshold is exceeded in the engine's
// direction, or when its optional Predicate reports true for a sample
// transition. Clone helpers avoid leaking registry-owned state to callers.
package alarm
