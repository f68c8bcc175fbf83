package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-timer/internal/stopwatch"
)

// TestValidate checks required fields, defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Empty config gets defaults.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, stopwatch.DefaultInterval, cfg.SampleInterval)
	require.Equal(t, DefaultEvaluateInterval, cfg.EvaluateInterval)
	require.Equal(t, "info", cfg.LogLevel)

	// Bad direction.
	require.Error(t, Validate(&Config{Direction: "sideways"}))

	// Bad log level.
	require.Error(t, Validate(&Config{LogLevel: "loud"}))

	// Negative interval.
	require.ErrorIs(t, Validate(&Config{SampleInterval: -time.Second}), errNegativeDuration)

	// Bad metrics address.
	require.Error(t, Validate(&Config{MetricsAddress: "no-port"}))

	// Alarm without a trigger.
	err := Validate(&Config{Alarms: []Alarm{{Tag: "nothing"}}})
	require.ErrorIs(t, err, errAlarmWithoutTrigger)

	// Threshold at zero is a legitimate trigger.
	zero := time.Duration(0)
	require.NoError(t, Validate(&Config{Alarms: []Alarm{{Tag: "zero", Threshold: &zero}}}))
}

// TestAlarmIsEnabled checks the default of the optional enabled flag.
func TestAlarmIsEnabled(t *testing.T) {
	t.Parallel()

	disabled := false

	require.True(t, (&Alarm{}).IsEnabled())
	require.False(t, (&Alarm{Enabled: &disabled}).IsEnabled())
}

// TestLoad_ParsesYAML checks duration parsing and defaults of a hand-written file.
func TestLoad_ParsesYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarm-timer.yaml")
	contents := `
start_value: 10s
direction: reverse
run_for: 12s
alarms:
  - tag: half
    threshold: 5s
    remove_on_fire: true
  - tag: tick
    every: 1s
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.StartValue)
	require.Equal(t, "reverse", cfg.Direction)
	require.Equal(t, 12*time.Second, cfg.RunFor)
	require.Equal(t, stopwatch.DefaultInterval, cfg.SampleInterval)
	require.Len(t, cfg.Alarms, 2)
	require.Equal(t, 5*time.Second, *cfg.Alarms[0].Threshold)
	require.True(t, cfg.Alarms[0].RemoveOnFire)
	require.True(t, cfg.Alarms[0].IsEnabled())
	require.Nil(t, cfg.Alarms[1].Threshold)
	require.Equal(t, time.Second, cfg.Alarms[1].Every)
	require.False(t, cfg.Alarms[1].IsEnabled())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	threshold := 3 * time.Second

	cfg := Default()
	cfg.StartValue = time.Second
	cfg.MetricsAddress = "127.0.0.1:9100"
	cfg.Alarms = []Alarm{{Tag: "three", Threshold: &threshold}}

	require.NoError(t, Save(path, cfg))
	require.Error(t, Save(path, nil))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
