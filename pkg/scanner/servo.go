// Package scanner positions the range sensor on its steering servo and
// takes distance readings.
package scanner

import (
	"github.com/autocar/go-autocar/pkg/hal"
)

// Mechanical limits of the scan head in degrees.
const (
	MinAngle = -85
	MaxAngle = 85
)

// Servo positions the scan head. Implementations clamp out-of-range
// angles rather than rejecting them.
type Servo interface {
	SetAngle(deg int) error
}

// Standard hobby-servo pulse timing. The 0.5–2.5 ms pulse range maps the
// full [-85, 85] travel.
const (
	servoPeriodUs   = 20000.0
	servoMinPulseUs = 500.0
	servoMaxPulseUs = 2500.0
)

// PWMServo drives a hobby servo from a 50 Hz PWM pin.
type PWMServo struct {
	pin hal.PWMPin
}

// NewPWMServo wraps pin as a servo. The pin must run at 50 Hz.
func NewPWMServo(pin hal.PWMPin) *PWMServo {
	return &PWMServo{pin: pin}
}

// SetAngle commands the servo to deg, clamped to the travel limits.
func (s *PWMServo) SetAngle(deg int) error {
	deg = ClampAngle(deg)
	frac := float64(deg-MinAngle) / float64(MaxAngle-MinAngle)
	pulse := servoMinPulseUs + frac*(servoMaxPulseUs-servoMinPulseUs)
	return s.pin.SetDuty(pulse / servoPeriodUs)
}

// ClampAngle restricts deg to the scan head's travel.
func ClampAngle(deg int) int {
	if deg < MinAngle {
		return MinAngle
	}
	if deg > MaxAngle {
		return MaxAngle
	}
	return deg
}
