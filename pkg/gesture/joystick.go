// Package gesture turns raw touch gestures into directional commands.
//
// Two input variants exist: a virtual Joystick that tracks drag offsets
// from a fixed origin, and direction Buttons that each emit one label.
// A single Strategy flag selects whether the joystick reports a coarse
// label or the continuous offset.
package gesture

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-rover/pkg/command"
)

// Strategy selects how joystick movement is reported.
type Strategy string

const (
	// StrategyLabel reports the coarse direction of each drag update.
	StrategyLabel Strategy = "label"
	// StrategyOffset reports the raw drag offset, clamped to the radius.
	StrategyOffset Strategy = "offset"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLabel, StrategyOffset:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("gesture: unknown strategy %q", s)
}

// Joystick tracks the knob position of a virtual joystick.
type Joystick struct {
	mu       sync.Mutex
	radius   float64
	strategy Strategy
	position command.Offset
}

// NewJoystick creates a joystick whose knob travels at most radius from
// the origin.
func NewJoystick(radius float64, strategy Strategy) *Joystick {
	if strategy == "" {
		strategy = StrategyLabel
	}
	return &Joystick{radius: radius, strategy: strategy}
}

// Move records a drag update (dx, dy from the origin) and returns the
// command it produces.
func (j *Joystick) Move(dx, dy float64) command.Command {
	j.mu.Lock()
	defer j.mu.Unlock()

	clamped := command.Offset{X: dx, Y: dy}.Clamp(j.radius)
	j.position = clamped

	if j.strategy == StrategyOffset {
		return command.Move(clamped.X, clamped.Y)
	}
	return command.Label(command.Coarse(dx, dy))
}

// Release snaps the knob back to the origin and returns the neutral
// command for the current strategy.
func (j *Joystick) Release() command.Command {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.position = command.Offset{}
	if j.strategy == StrategyOffset {
		return command.Move(0, 0)
	}
	return command.Label(command.Stop)
}

// Position returns the displayed knob offset.
func (j *Joystick) Position() command.Offset {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.position
}

// Radius returns the maximum knob travel.
func (j *Joystick) Radius() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.radius
}

// Strategy returns the active reporting strategy.
func (j *Joystick) Strategy() Strategy {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.strategy
}

// SetStrategy changes the reporting strategy.
func (j *Joystick) SetStrategy(s Strategy) {
	j.mu.Lock()
	j.strategy = s
	j.mu.Unlock()
}

// DisplayLabel returns the on-screen label for an offset. Offsets whose
// components both stay within deadZone*radius show no label.
func DisplayLabel(o command.Offset, radius, deadZone float64) string {
	limit := radius * deadZone
	if abs(o.X) <= limit && abs(o.Y) <= limit {
		return ""
	}
	return string(command.Coarse(o.X, o.Y))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
