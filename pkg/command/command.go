// Package command defines the directional commands sent to the rover and
// how they are encoded into device requests.
//
// A Command is either a discrete Direction label or a continuous Offset.
// Both kinds encode deterministically: labels become a path segment
// ("/forward") and offsets become query parameters ("/?x=80.00&y=10.00").
package command

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
)

// ErrUnknownDirection is returned when a label is not one of the five
// known directions.
var ErrUnknownDirection = errors.New("command: unknown direction")

// Direction is a discrete movement label.
type Direction string

// Known directions.
const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Left     Direction = "left"
	Right    Direction = "right"
	Stop     Direction = "stop"
)

// Directions lists every known label in button order.
var Directions = []Direction{Backward, Forward, Left, Right, Stop}

// ParseDirection parses a label, accepting the plural "forwards" and
// "backwards" spellings emitted by older joystick firmware clients.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Forward, "forwards", "front":
		return Forward, nil
	case Backward, "backwards", "back":
		return Backward, nil
	case Left:
		return Left, nil
	case Right:
		return Right, nil
	case Stop:
		return Stop, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case Forward, Backward, Left, Right, Stop:
		return true
	}
	return false
}

// Offset is a signed joystick displacement from the origin, in screen
// units. Positive Y points down the screen.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Magnitude returns the Euclidean length of o.
func (o Offset) Magnitude() float64 {
	return math.Hypot(o.X, o.Y)
}

// Clamp scales o so its magnitude is at most radius.
// A non-positive radius returns o unchanged.
func (o Offset) Clamp(radius float64) Offset {
	if radius <= 0 {
		return o
	}
	m := o.Magnitude()
	if m <= radius {
		return o
	}
	scale := radius / m
	return Offset{X: o.X * scale, Y: o.Y * scale}
}

// Coarse maps a displacement to a single direction by comparing its
// absolute horizontal and vertical components. Ties go vertical.
func Coarse(dx, dy float64) Direction {
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return Right
		}
		return Left
	}
	if dy > 0 {
		return Backward
	}
	return Forward
}

// Kind distinguishes the two command shapes.
type Kind string

const (
	KindLabel  Kind = "label"
	KindOffset Kind = "offset"
)

// Command is a single directional value. Exactly one of Direction or
// Offset is meaningful, as selected by Kind.
type Command struct {
	Kind      Kind      `json:"kind"`
	Direction Direction `json:"direction,omitempty"`
	Offset    Offset    `json:"offset"`
}

// Label returns a label command.
func Label(d Direction) Command {
	return Command{Kind: KindLabel, Direction: d}
}

// Move returns an offset command.
func Move(x, y float64) Command {
	return Command{Kind: KindOffset, Offset: Offset{X: x, Y: y}}
}

// IsStop reports whether c is the neutral command: the stop label or a
// zero offset.
func (c Command) IsStop() bool {
	if c.Kind == KindOffset {
		return c.Offset.X == 0 && c.Offset.Y == 0
	}
	return c.Direction == Stop
}

// RequestPath returns the path and query appended to the device address.
func (c Command) RequestPath() string {
	if c.Kind == KindOffset {
		q := url.Values{}
		q.Set("x", formatCoord(c.Offset.X))
		q.Set("y", formatCoord(c.Offset.Y))
		return "/?" + q.Encode()
	}
	return "/" + url.PathEscape(string(c.Direction))
}

// URL joins the device base address with the command's request path.
func (c Command) URL(base string) string {
	return strings.TrimRight(base, "/") + c.RequestPath()
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if c.Kind == KindOffset {
		return fmt.Sprintf("offset(%s,%s)", formatCoord(c.Offset.X), formatCoord(c.Offset.Y))
	}
	return string(c.Direction)
}

// formatCoord renders a coordinate with two decimals, folding -0.00 to 0.00.
func formatCoord(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}
