// Package command maps external command tokens onto drive and pilot
// operations. It is the boundary to whatever transport delivers the
// tokens: one token in, one human-readable status line out, plus an error
// when the command failed.
package command

import (
	"errors"
	"fmt"

	"github.com/autocar/go-autocar/internal/log"
	"github.com/autocar/go-autocar/pkg/drive"
	"github.com/autocar/go-autocar/pkg/pilot"
)

// ErrUnknownCommand marks a token outside the command table.
var ErrUnknownCommand = errors.New("command: unknown command")

// DriveControl is what the router needs from the drive coordinator.
type DriveControl interface {
	Forward(speed float64) error
	Backward(speed float64) error
	Left(speed float64) error
	Right(speed float64) error
	Stop() error
}

// Pilot is what the router needs from the autonomous controller.
type Pilot interface {
	Start() error
	Stop() error
	Active() bool
}

// Power re-energizes the motor driver for manual movement. An auto
// session disables the driver when it ends, so the next manual command
// must assert the enable lines again or the motors stay dark.
type Power interface {
	Enable() error
}

// Router executes command tokens. It never panics on bad input; an
// unrecognized token is a failure status, not a crash.
type Router struct {
	drive DriveControl
	state *drive.State
	pilot Pilot
	power Power
}

// New creates a router over the drive coordinator, shared speed state,
// pilot and motor power.
func New(drv DriveControl, state *drive.State, p Pilot, power Power) *Router {
	return &Router{drive: drv, state: state, pilot: p, power: power}
}

// Execute runs one token and returns its status line. A non-nil error
// marks the status as a failure; the status text is still meaningful.
//
// Tokens are case-sensitive. Manual movement tokens are accepted even
// while the pilot is active: both then command the motors and the last
// writer wins. That race is inherited from the original design on
// purpose; the router only flags it in the log.
func (r *Router) Execute(token string) (string, error) {
	switch token {
	case "auto_start":
		if err := r.pilot.Start(); err != nil {
			if errors.Is(err, pilot.ErrAlreadyRunning) {
				return "already in auto mode", err
			}
			return "auto mode failed to start", err
		}
		return "auto mode started", nil

	case "auto_stop":
		if err := r.pilot.Stop(); err != nil {
			if errors.Is(err, pilot.ErrNotRunning) {
				return "auto mode not active", err
			}
			return "auto mode failed to stop", err
		}
		return "auto mode stopped", nil

	case "speed+":
		return fmt.Sprintf("speed set to %.1f", r.state.Increase()), nil

	case "speed-":
		return fmt.Sprintf("speed set to %.1f", r.state.Decrease()), nil
	}

	move, ok := r.moves()[token]
	if !ok {
		return "unknown command", ErrUnknownCommand
	}
	if r.pilot.Active() {
		log.Warn("manual command while auto mode is active", "token", token)
	}
	if err := r.power.Enable(); err != nil {
		return token + " failed", err
	}
	if err := move(); err != nil {
		return token + " failed", err
	}
	return token + " executed", nil
}

func (r *Router) moves() map[string]func() error {
	speed := r.state.Speed
	return map[string]func() error{
		"forward_start":  func() error { return r.drive.Forward(speed()) },
		"forward_stop":   r.drive.Stop,
		"backward_start": func() error { return r.drive.Backward(speed()) },
		"backward_stop":  r.drive.Stop,
		"left_start":     func() error { return r.drive.Left(speed()) },
		"left_stop":      r.drive.Stop,
		"right_start":    func() error { return r.drive.Right(speed()) },
		"right_stop":     r.drive.Stop,
	}
}
