// Package motor drives the two BTS7960 H-bridge channels of the robot.
//
// Each channel has a forward PWM, a reverse PWM and two enable lines. The
// driver guarantees at most one of the two PWM outputs is nonzero at any
// time, and that both are zero whenever the channel is disabled.
package motor

import "github.com/autocar/go-autocar/pkg/hal"

// ChannelID selects one of the two motor channels.
type ChannelID int

// The two drive channels.
const (
	Left ChannelID = iota
	Right
)

// String returns the channel name for logs.
func (c ChannelID) String() string {
	if c == Left {
		return "left"
	}
	return "right"
}

// Channel is the pin set of one H-bridge half.
type Channel struct {
	Forward hal.PWMPin
	Reverse hal.PWMPin
	EnableA hal.OutPin
	EnableB hal.OutPin
}

// Driver controls both motor channels.
type Driver struct {
	channels [2]Channel
}

// NewDriver creates a driver from the left and right channel pin sets.
func NewDriver(left, right Channel) *Driver {
	return &Driver{channels: [2]Channel{left, right}}
}

// SetChannelSpeed commands one channel with a signed unit-interval speed.
// Values outside [-1, 1] are clamped, not rejected; a hardware driver is
// best-effort. The opposing PWM output is zeroed before the active one is
// driven so both are never nonzero together.
func (d *Driver) SetChannelSpeed(id ChannelID, speed float64) error {
	ch := d.channels[id]
	speed = clamp(speed, -1, 1)
	switch {
	case speed > 0:
		if err := ch.Reverse.SetDuty(0); err != nil {
			return err
		}
		return ch.Forward.SetDuty(speed)
	case speed < 0:
		if err := ch.Forward.SetDuty(0); err != nil {
			return err
		}
		return ch.Reverse.SetDuty(-speed)
	default:
		if err := ch.Forward.SetDuty(0); err != nil {
			return err
		}
		return ch.Reverse.SetDuty(0)
	}
}

// Enable asserts the enable lines of both channels.
func (d *Driver) Enable() error {
	for _, ch := range d.channels {
		if err := ch.EnableA.Set(true); err != nil {
			return err
		}
		if err := ch.EnableB.Set(true); err != nil {
			return err
		}
	}
	return nil
}

// Disable de-energizes the driver. All PWM outputs are zeroed before any
// enable line is dropped; releasing an enable while a PWM still drives
// would produce an uncommanded pulse.
func (d *Driver) Disable() error {
	for _, ch := range d.channels {
		if err := ch.Forward.SetDuty(0); err != nil {
			return err
		}
		if err := ch.Reverse.SetDuty(0); err != nil {
			return err
		}
	}
	for _, ch := range d.channels {
		if err := ch.EnableA.Set(false); err != nil {
			return err
		}
		if err := ch.EnableB.Set(false); err != nil {
			return err
		}
	}
	return nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
