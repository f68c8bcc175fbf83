package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/alarm-timer/internal/config"
	domain "github.com/oshokin/alarm-timer/internal/domain/alarm"
	"github.com/oshokin/alarm-timer/internal/logger"
	"github.com/oshokin/alarm-timer/internal/metrics"
	"github.com/oshokin/alarm-timer/internal/service/alarm"
	"github.com/oshokin/alarm-timer/internal/stopwatch"
)

// Options controls a single alarm-timer run.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// RunFor overrides the configured run duration when positive.
	RunFor time.Duration
	// Clock replaces the wall clock; tests pass clock.NewMock().
	Clock clock.Clock
}

// ErrEngineFailed is returned when the stopwatch sampler dies during a run.
var ErrEngineFailed = errors.New("stopwatch engine failed")

// Run loads settings, starts a stopwatch with the configured alarms and evaluates
// them until ctx is cancelled, the run duration elapses or the engine fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-timer")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if opts.RunFor > 0 {
		cfg.RunFor = opts.RunFor
	}

	return Execute(ctx, cfg, opts.Clock)
}

// Execute runs the stopwatch described by cfg. A nil wall clock means the real one.
func Execute(ctx context.Context, cfg *config.Config, wall clock.Clock) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	if lvl, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(lvl)
	}

	if wall == nil {
		wall = clock.New()
	}

	// Validate has already accepted the direction.
	direction, _ := stopwatch.ParseDirection(cfg.Direction)

	ctx = logger.WithKV(ctx, "direction", direction.String())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine := stopwatch.New(runCtx, cfg.StartValue, direction,
		stopwatch.WithClock(wall),
		stopwatch.WithInterval(cfg.SampleInterval),
	)
	defer engine.Shutdown()

	registry := alarm.NewRegistry()
	engine.Attach(registry)

	if err := registerAlarms(ctx, registry, engine, cfg.Alarms); err != nil {
		return err
	}

	if cfg.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector(engine, registry))

		if _, err := metrics.Serve(runCtx, cfg.MetricsAddress, reg); err != nil {
			return fmt.Errorf("serve metrics: %w", err)
		}
	}

	if err := engine.Start(); err != nil {
		return fmt.Errorf("start stopwatch: %w", err)
	}

	logger.InfoKV(ctx, "Stopwatch started",
		"start_value", cfg.StartValue.String(),
		"direction", direction.String(),
		"alarms", registry.Len(),
		"run_for", cfg.RunFor.String(),
	)

	err := evaluateLoop(ctx, wall, engine, registry, cfg)

	engine.Stop()
	logger.InfoKV(ctx, "Stopwatch stopped", "value", engine.Time().String(), "fired", registry.Stats().Fired)

	return err
}

// evaluateLoop calls Evaluate on every tick until the run ends.
func evaluateLoop(
	ctx context.Context,
	wall clock.Clock,
	engine *stopwatch.Engine,
	registry *alarm.Registry,
	cfg *config.Config,
) error {
	ticker := wall.Ticker(cfg.EvaluateInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time

	if cfg.RunFor > 0 {
		timer := wall.Timer(cfg.RunFor)
		defer timer.Stop()

		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-deadline:
			// Pick up the last sample before finishing.
			evaluate(ctx, engine, registry)
			logger.Info(ctx, "Run duration elapsed")

			return nil
		case <-engine.Done():
			if err := engine.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrEngineFailed, err)
			}

			return nil
		case <-ticker.C:
			evaluate(ctx, engine, registry)
		}
	}
}

// evaluate runs one alarm pass; failures are already logged per alarm.
func evaluate(ctx context.Context, engine *stopwatch.Engine, registry *alarm.Registry) {
	if err := registry.Evaluate(ctx, engine); err != nil {
		logger.WarnKV(ctx, "Alarm pass finished with errors", "error", err)
	}
}

// registerAlarms turns configured alarms into registry records that log when they fire.
func registerAlarms(ctx context.Context, registry *alarm.Registry, engine *stopwatch.Engine, alarms []config.Alarm) error {
	for i := range alarms {
		a := &alarms[i]

		record := &domain.Record{
			Threshold:    a.Threshold,
			RemoveOnFire: a.RemoveOnFire,
			Tag:          a.Tag,
			Enabled:      a.IsEnabled(),
			Action:       announce(a.Tag, engine),
		}

		if a.Every > 0 {
			record.Predicate = domain.Crossing(a.Every)
		}

		id, err := registry.Register(record)
		if err != nil {
			return fmt.Errorf("register alarm %q: %w", a.Tag, err)
		}

		logger.DebugKV(ctx, "Alarm registered", "tag", a.Tag, "id", id)
	}

	return nil
}

// announce returns an action that logs the alarm tag with the engine time.
func announce(tag string, engine *stopwatch.Engine) domain.Action {
	return func(ctx context.Context) error {
		logger.InfoKV(ctx, "Alarm fired", "tag", tag, "value", engine.Time().String())

		return nil
	}
}
