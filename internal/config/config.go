package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-timer/internal/logger"
	"github.com/oshokin/alarm-timer/internal/stopwatch"
)

// Config holds the stopwatch and alarm settings of the alarm-timer binary.
type Config struct {
	// StartValue is the initial stopwatch value and the value Reset restores.
	StartValue time.Duration `yaml:"start_value"`
	// Direction is "forward" or "reverse".
	Direction string `yaml:"direction"`
	// SampleInterval is the stopwatch sampling period.
	SampleInterval time.Duration `yaml:"sample_interval"`
	// EvaluateInterval is the period of alarm evaluation calls.
	EvaluateInterval time.Duration `yaml:"evaluate_interval"`
	// RunFor stops the run after this much wall-clock time. Zero runs until interrupted.
	RunFor time.Duration `yaml:"run_for"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// MetricsAddress enables the Prometheus endpoint when set, e.g. "127.0.0.1:9100".
	MetricsAddress string `yaml:"metrics_address,omitempty"`
	// Alarms are registered in order at startup.
	Alarms []Alarm `yaml:"alarms"`
}

// Alarm describes one alarm record.
type Alarm struct {
	// Tag labels the alarm in logs; it does not need to be unique.
	Tag string `yaml:"tag"`
	// Threshold fires the alarm once the value passes it. Nil means absent.
	Threshold *time.Duration `yaml:"threshold,omitempty"`
	// Every fires the alarm each time the value crosses a multiple of it.
	Every time.Duration `yaml:"every,omitempty"`
	// RemoveOnFire drops the alarm after its first activation.
	RemoveOnFire bool `yaml:"remove_on_fire,omitempty"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports the effective enabled flag.
func (a *Alarm) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

const (
	// DefaultConfigFilename is the default path of the YAML settings.
	DefaultConfigFilename = "alarm-timer.yaml"

	// DefaultEvaluateInterval is the default period of alarm evaluation.
	DefaultEvaluateInterval = 10 * time.Millisecond

	// DefaultFilePermissions is the permission used when saving settings.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAlarmWithoutTrigger is returned for alarms with neither threshold nor every.
	errAlarmWithoutTrigger = errors.New("alarm needs a threshold or an every interval")
	// errNegativeDuration is returned for negative intervals.
	errNegativeDuration = errors.New("duration must not be negative")
)

// Default returns settings for a forward stopwatch starting at zero with no alarms.
func Default() *Config {
	return &Config{
		Direction:        stopwatch.Forward.String(),
		SampleInterval:   stopwatch.DefaultInterval,
		EvaluateInterval: DefaultEvaluateInterval,
		LogLevel:         "info",
	}
}

// Load reads configuration from path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks cfg and fills defaults for unset intervals and log level.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, err := stopwatch.ParseDirection(cfg.Direction); err != nil {
		return fmt.Errorf("invalid direction: %w", err)
	}

	if cfg.SampleInterval < 0 || cfg.EvaluateInterval < 0 || cfg.RunFor < 0 {
		return errNegativeDuration
	}

	if cfg.SampleInterval == 0 {
		cfg.SampleInterval = stopwatch.DefaultInterval
	}

	if cfg.EvaluateInterval == 0 {
		cfg.EvaluateInterval = DefaultEvaluateInterval
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	if cfg.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	for i := range cfg.Alarms {
		a := &cfg.Alarms[i]

		if a.Every < 0 {
			return fmt.Errorf("alarm %d (%q): every: %w", i, a.Tag, errNegativeDuration)
		}

		if a.Threshold == nil && a.Every == 0 {
			return fmt.Errorf("alarm %d (%q): %w", i, a.Tag, errAlarmWithoutTrigger)
		}
	}

	return nil
}
