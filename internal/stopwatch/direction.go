package stopwatch

import (
	"errors"
	"fmt"
	"strings"
)

// Direction is the sign of time accumulation.
type Direction int

const (
	// Forward engines count up from the start value.
	Forward Direction = iota
	// Reverse engines count down from the start value.
	Reverse
)

// errUnknownDirection is returned by ParseDirection for unrecognised input.
var errUnknownDirection = errors.New("unknown direction")

// ParseDirection accepts "forward"/"up" and "reverse"/"down", case-insensitively.
// An empty string means Forward.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward", "up":
		return Forward, nil
	case "reverse", "down":
		return Reverse, nil
	default:
		return Forward, fmt.Errorf("%w: %q", errUnknownDirection, s)
	}
}

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}

	return "forward"
}

// Status is the lifecycle status of an Engine.
type Status int

const (
	// StatusStopped means the engine is alive but its value is frozen.
	StatusStopped Status = iota
	// StatusRunning means the sampler is advancing the value.
	StatusRunning
	// StatusShutdown means Shutdown was called or the context was cancelled.
	StatusShutdown
	// StatusFailed means the sampler died; see Engine.Err.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	case StatusShutdown:
		return "shutdown"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Alive reports whether an engine in this status can still be started.
func (s Status) Alive() bool {
	return s == StatusStopped || s == StatusRunning
}
