package gesture

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-rover/pkg/command"
)

// Mode selects which input variant is active.
type Mode string

const (
	ModeJoystick  Mode = "joystick"
	ModeDirection Mode = "direction"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeJoystick, ModeDirection:
		return Mode(s), nil
	}
	return "", fmt.Errorf("gesture: unknown mode %q", s)
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeJoystick {
		return ModeDirection
	}
	return ModeJoystick
}

// Buttons is the direction-buttons variant. Each press emits one fixed
// label and holds no state.
type Buttons struct{}

// Press returns the label command for a button.
func (Buttons) Press(label string) (command.Command, error) {
	d, err := command.ParseDirection(label)
	if err != nil {
		return command.Command{}, err
	}
	return command.Label(d), nil
}

// Input routes gesture events to the active variant and emits each
// produced command synchronously. It never blocks on the network.
type Input struct {
	mu       sync.Mutex
	mode     Mode
	joystick *Joystick
	buttons  Buttons

	// Emit receives every produced command.
	Emit func(command.Command)
}

// NewInput creates an Input starting in mode.
func NewInput(mode Mode, joystick *Joystick) *Input {
	return &Input{mode: mode, joystick: joystick}
}

// Mode returns the active mode.
func (in *Input) Mode() Mode {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.mode
}

// SetMode switches the active variant. Switching away from the joystick
// mid-drag releases it, so the neutral command is emitted before the
// joystick stops accepting events.
func (in *Input) SetMode(m Mode) {
	in.mu.Lock()
	prev := in.mode
	in.mode = m
	in.mu.Unlock()

	if prev != ModeJoystick || m == ModeJoystick {
		return
	}
	if in.joystick.Position() == (command.Offset{}) {
		return
	}
	in.emit(in.joystick.Release())
}

// Joystick returns the joystick variant.
func (in *Input) Joystick() *Joystick {
	return in.joystick
}

// Move handles a drag update. It reports false when the joystick is not
// the active variant.
func (in *Input) Move(dx, dy float64) (command.Command, bool) {
	if in.Mode() != ModeJoystick {
		return command.Command{}, false
	}
	cmd := in.joystick.Move(dx, dy)
	in.emit(cmd)
	return cmd, true
}

// Release handles the end of a drag.
func (in *Input) Release() (command.Command, bool) {
	if in.Mode() != ModeJoystick {
		return command.Command{}, false
	}
	cmd := in.joystick.Release()
	in.emit(cmd)
	return cmd, true
}

// Press handles a direction-button tap.
func (in *Input) Press(label string) (command.Command, bool, error) {
	if in.Mode() != ModeDirection {
		return command.Command{}, false, nil
	}
	cmd, err := in.buttons.Press(label)
	if err != nil {
		return command.Command{}, false, err
	}
	in.emit(cmd)
	return cmd, true, nil
}

func (in *Input) emit(cmd command.Command) {
	if in.Emit != nil {
		in.Emit(cmd)
	}
}
