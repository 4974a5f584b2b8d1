// Package config provides configuration for the autocar daemon and tools.
// Values come from the environment with defaults matching the reference
// hardware (a Raspberry Pi carrying two BTS7960 H-bridges, two LM393-style
// wheel encoders, an HC-SR04 range sensor on a steering servo).
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults.
const (
	DefaultPort        = "5000"
	DefaultLogLevel    = "info"
	DefaultSpeed       = 0.3
	DefaultThresholdCm = 20.0
)

// Pins holds the BCM pin assignment for every piece of attached hardware.
type Pins struct {
	// Motor A (left): forward/reverse PWM plus the two enable lines.
	MotorAForward string
	MotorAReverse string
	MotorAEnableA string
	MotorAEnableB string

	// Motor B (right).
	MotorBForward string
	MotorBReverse string
	MotorBEnableA string
	MotorBEnableB string

	// Wheel encoders: pulse (edge) and phase (level) per wheel.
	EncoderAPulse string
	EncoderAPhase string
	EncoderBPulse string
	EncoderBPhase string

	// Range sensor and its steering servo.
	SonarTrigger string
	SonarEcho    string
	ServoPWM     string
}

// DefaultPins returns the pin assignment of the reference build.
func DefaultPins() Pins {
	return Pins{
		MotorAForward: "GPIO18",
		MotorAReverse: "GPIO23",
		MotorAEnableA: "GPIO24",
		MotorAEnableB: "GPIO25",

		MotorBForward: "GPIO22",
		MotorBReverse: "GPIO27",
		MotorBEnableA: "GPIO5",
		MotorBEnableB: "GPIO6",

		EncoderAPulse: "GPIO17",
		EncoderAPhase: "GPIO4",
		EncoderBPulse: "GPIO19",
		EncoderBPhase: "GPIO13",

		SonarTrigger: "GPIO20",
		SonarEcho:    "GPIO21",
		ServoPWM:     "GPIO12",
	}
}

// Port returns the HTTP port from AUTOCAR_PORT or the default.
func Port() string {
	if p := os.Getenv("AUTOCAR_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// LogLevel returns the log level from AUTOCAR_LOG_LEVEL or the default.
func LogLevel() string {
	if l := os.Getenv("AUTOCAR_LOG_LEVEL"); l != "" {
		return l
	}
	return DefaultLogLevel
}

// InitialSpeed returns the startup drive speed from AUTOCAR_SPEED or the
// default. Out-of-range or unparseable values fall back to the default.
func InitialSpeed() float64 {
	return envFloat("AUTOCAR_SPEED", DefaultSpeed, 0.0, 1.0)
}

// ObstacleThresholdCm returns the auto-mode obstacle distance from
// AUTOCAR_THRESHOLD_CM or the default.
func ObstacleThresholdCm() float64 {
	return envFloat("AUTOCAR_THRESHOLD_CM", DefaultThresholdCm, 1.0, 400.0)
}

// ServerAddr returns the daemon address used by client tools, from
// AUTOCAR_ADDR or a localhost default.
func ServerAddr() string {
	if a := os.Getenv("AUTOCAR_ADDR"); a != "" {
		return a
	}
	return "127.0.0.1:" + Port()
}

// ServerURL returns the daemon base URL for client tools.
func ServerURL() string {
	return fmt.Sprintf("http://%s", ServerAddr())
}

func envFloat(key string, def, min, max float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}
