// Package logger wraps zap with a global sugared console logger and helpers
// that carry a scoped logger through context.Context.
//
// Long-running goroutines (the stopwatch sampler, alarm evaluation) receive a
// context at construction and log through it, so every line is tagged with the
// component name set by WithName.
package logger
