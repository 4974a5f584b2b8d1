// The autocar daemon runs on the robot: it owns the motor driver, the
// wheel encoders and the scanning range sensor, and exposes them over
// the HTTP command surface.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/autocar/go-autocar/internal/config"
	"github.com/autocar/go-autocar/internal/log"
	"github.com/autocar/go-autocar/pkg/command"
	"github.com/autocar/go-autocar/pkg/drive"
	"github.com/autocar/go-autocar/pkg/encoder"
	"github.com/autocar/go-autocar/pkg/hal"
	"github.com/autocar/go-autocar/pkg/motor"
	"github.com/autocar/go-autocar/pkg/pilot"
	"github.com/autocar/go-autocar/pkg/scanner"
	"github.com/autocar/go-autocar/pkg/web"
)

// PWM frequencies: motor drive and hobby-servo control.
const (
	motorPWMFreq = 1 * physic.KiloHertz
	servoPWMFreq = 50 * physic.Hertz
)

// rig is everything main builds from the pins.
type rig struct {
	driver *motor.Driver
	left   *encoder.Tracker
	right  *encoder.Tracker
	scan   *scanner.Scanner
}

func main() {
	port := flag.String("port", config.Port(), "HTTP listen port")
	sim := flag.Bool("sim", false, "run with in-memory pins instead of GPIO")
	flag.Parse()

	log.Init(config.LogLevel())

	var (
		r   rig
		err error
	)
	if *sim {
		r = simRig()
		log.Info("running in simulation mode")
	} else {
		r, err = gpioRig(config.DefaultPins())
		if err != nil {
			log.Error("hardware setup failed", "err", err)
			os.Exit(1)
		}
	}

	state := drive.NewState(config.InitialSpeed())
	drv := drive.New(r.driver)
	auto := pilot.New(pilot.Config{ThresholdCm: config.ObstacleThresholdCm()},
		drv, r.scan, r.driver, state, clock.New())
	router := command.New(drv, state, auto, r.driver)

	server := web.NewServer(web.Config{Port: *port}, web.Deps{
		Commands:   router,
		Ranger:     r.scan,
		LeftWheel:  r.left,
		RightWheel: r.right,
		Speed:      state,
		Pilot:      auto,
	})

	// The driver is energized for manual commands from the start; the
	// pilot manages it again around its own sessions.
	if err := r.driver.Enable(); err != nil {
		log.Error("enable driver", "err", err)
		os.Exit(1)
	}

	// Whatever ends this process, the motors must not stay energized.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("shutting down", "signal", sig.String())
		if err := auto.Stop(); err != nil && err != pilot.ErrNotRunning {
			log.Error("stop pilot", "err", err)
		}
		if err := r.driver.Disable(); err != nil {
			log.Error("disable driver", "err", err)
		}
		if err := server.Shutdown(); err != nil {
			log.Error("server shutdown", "err", err)
		}
	}()

	if err := server.Start(); err != nil {
		log.Error("server exited", "err", err)
	}

	// Listen returned (shutdown or bind failure); de-energize either way.
	if err := r.driver.Disable(); err != nil {
		log.Error("disable driver", "err", err)
	}
}

// gpioRig opens the real pins and builds the hardware stack.
func gpioRig(pins config.Pins) (rig, error) {
	if err := hal.Init(); err != nil {
		return rig{}, err
	}

	channel := func(fwd, rev, ena, enb string) (motor.Channel, error) {
		f, err := hal.NewPWMPin(fwd, motorPWMFreq)
		if err != nil {
			return motor.Channel{}, err
		}
		r, err := hal.NewPWMPin(rev, motorPWMFreq)
		if err != nil {
			return motor.Channel{}, err
		}
		a, err := hal.NewOutPin(ena)
		if err != nil {
			return motor.Channel{}, err
		}
		b, err := hal.NewOutPin(enb)
		if err != nil {
			return motor.Channel{}, err
		}
		return motor.Channel{Forward: f, Reverse: r, EnableA: a, EnableB: b}, nil
	}

	leftCh, err := channel(pins.MotorAForward, pins.MotorAReverse, pins.MotorAEnableA, pins.MotorAEnableB)
	if err != nil {
		return rig{}, err
	}
	rightCh, err := channel(pins.MotorBForward, pins.MotorBReverse, pins.MotorBEnableA, pins.MotorBEnableB)
	if err != nil {
		return rig{}, err
	}

	tracker := func(pulseName, phaseName string) (*encoder.Tracker, error) {
		pulse, err := hal.NewEdgePin(pulseName, gpio.PullUp, encoder.Debounce)
		if err != nil {
			return nil, err
		}
		phase, err := hal.NewInPin(phaseName, gpio.PullUp)
		if err != nil {
			return nil, err
		}
		return encoder.NewTracker(pulse, phase), nil
	}

	left, err := tracker(pins.EncoderAPulse, pins.EncoderAPhase)
	if err != nil {
		return rig{}, err
	}
	right, err := tracker(pins.EncoderBPulse, pins.EncoderBPhase)
	if err != nil {
		return rig{}, err
	}

	servoPin, err := hal.NewPWMPin(pins.ServoPWM, servoPWMFreq)
	if err != nil {
		return rig{}, err
	}
	trigger, err := hal.NewOutPin(pins.SonarTrigger)
	if err != nil {
		return rig{}, err
	}
	echo, err := hal.NewEdgePin(pins.SonarEcho, gpio.PullNoChange, 0)
	if err != nil {
		return rig{}, err
	}

	clk := clock.New()
	sonar := scanner.NewHCSR04(trigger, echo, clk)
	scan := scanner.New(scanner.NewPWMServo(servoPin), sonar, clk)

	return rig{
		driver: motor.NewDriver(leftCh, rightCh),
		left:   left,
		right:  right,
		scan:   scan,
	}, nil
}

// simRig builds the same stack on in-memory pins with a fixed open range,
// for developing off the robot.
func simRig() rig {
	channel := func() motor.Channel {
		return motor.Channel{
			Forward: &hal.MemoryPWM{},
			Reverse: &hal.MemoryPWM{},
			EnableA: &hal.MemoryOut{},
			EnableB: &hal.MemoryOut{},
		}
	}
	clk := clock.New()
	scan := scanner.New(
		scanner.NewPWMServo(&hal.MemoryPWM{}),
		scanner.FixedSensor{Cm: 100},
		clk,
	)
	return rig{
		driver: motor.NewDriver(channel(), channel()),
		left:   encoder.NewTracker(&hal.MemoryEdge{}, &hal.MemoryIn{}),
		right:  encoder.NewTracker(&hal.MemoryEdge{}, &hal.MemoryIn{}),
		scan:   scan,
	}
}
