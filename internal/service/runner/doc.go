// Package runner wires configuration, the stopwatch engine, the alarm
// registry and the optional metrics endpoint into the alarm-timer run loop.
package runner
