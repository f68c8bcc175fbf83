// Package config defines the YAML settings of the alarm-timer binary and
// provides helpers to load, validate and save them.
//
// Durations use Go syntax ("1m30s", "250ms"). Validate fills defaults for the
// sampling and evaluation intervals.
package config
