package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/alarm-timer/internal/service/alarm"
	"github.com/oshokin/alarm-timer/internal/stopwatch"
)

// namespace prefixes every exported metric.
const namespace = "alarm_timer"

// EngineSource is the read side of a stopwatch engine.
type EngineSource interface {
	Snapshot() stopwatch.Snapshot
}

// RegistrySource is the read side of an alarm registry.
type RegistrySource interface {
	Stats() alarm.Stats
}

// Collector exports engine and registry state as const metrics on every scrape.
type Collector struct {
	// engine is sampled for value, running and alive gauges.
	engine EngineSource
	// registry is sampled for record gauges and counters.
	registry RegistrySource

	value    *prometheus.Desc
	running  *prometheus.Desc
	alive    *prometheus.Desc
	records  *prometheus.Desc
	fired    *prometheus.Desc
	failures *prometheus.Desc
}

// NewCollector builds a collector. A nil registry omits the alarm metrics.
func NewCollector(engine EngineSource, registry RegistrySource) *Collector {
	labels := []string{"direction"}

	return &Collector{
		engine:   engine,
		registry: registry,
		value: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stopwatch", "value_seconds"),
			"Current elapsed time value of the stopwatch.",
			labels, nil,
		),
		running: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stopwatch", "running"),
			"1 if the stopwatch is advancing, otherwise 0.",
			labels, nil,
		),
		alive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stopwatch", "alive"),
			"1 if the sampler goroutine is alive, otherwise 0.",
			labels, nil,
		),
		records: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alarm", "records"),
			"Number of registered alarm records.",
			nil, nil,
		),
		fired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alarm", "fired_total"),
			"Number of alarm activations.",
			nil, nil,
		),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alarm", "failures_total"),
			"Number of failed alarm actions and predicates.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.running
	ch <- c.alive

	if c.registry != nil {
		ch <- c.records
		ch <- c.fired
		ch <- c.failures
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.engine.Snapshot()
	direction := snapshot.Direction.String()

	ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, snapshot.Current.Seconds(), direction)
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue,
		boolToFloat(snapshot.Status == stopwatch.StatusRunning), direction)
	ch <- prometheus.MustNewConstMetric(c.alive, prometheus.GaugeValue,
		boolToFloat(snapshot.Status.Alive()), direction)

	if c.registry == nil {
		return
	}

	stats := c.registry.Stats()

	ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, float64(stats.Records))
	ch <- prometheus.MustNewConstMetric(c.fired, prometheus.CounterValue, float64(stats.Fired))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(stats.Failures))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
