// Package drive composes the two motor channels into directional
// primitives: forward, backward, in-place pivots, stop.
package drive

import (
	"errors"

	"github.com/autocar/go-autocar/pkg/motor"
)

// MotorDriver is what the coordinator needs from the actuator driver.
type MotorDriver interface {
	SetChannelSpeed(ch motor.ChannelID, speed float64) error
}

// Drive translates directional commands into paired channel speeds. Both
// channels are always commanded, even if the first write fails, so a pin
// error cannot leave one wheel driving.
type Drive struct {
	motors MotorDriver
}

// New creates the drive coordinator.
func New(motors MotorDriver) *Drive {
	return &Drive{motors: motors}
}

func (d *Drive) set(left, right float64) error {
	errL := d.motors.SetChannelSpeed(motor.Left, left)
	errR := d.motors.SetChannelSpeed(motor.Right, right)
	return errors.Join(errL, errR)
}

// Forward drives both wheels ahead at speed.
func (d *Drive) Forward(speed float64) error {
	return d.set(speed, speed)
}

// Backward drives both wheels in reverse at speed.
func (d *Drive) Backward(speed float64) error {
	return d.set(-speed, -speed)
}

// Left pivots in place counter-clockwise at speed.
func (d *Drive) Left(speed float64) error {
	return d.set(-speed, speed)
}

// Right pivots in place clockwise at speed.
func (d *Drive) Right(speed float64) error {
	return d.set(speed, -speed)
}

// Stop zeroes both channels.
func (d *Drive) Stop() error {
	return d.set(0, 0)
}
