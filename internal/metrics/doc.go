// Package metrics exports stopwatch and alarm registry state to Prometheus.
package metrics
