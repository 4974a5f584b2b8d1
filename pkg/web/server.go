// Package web exposes the robot over HTTP: the command endpoint, status
// queries and a websocket telemetry stream.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/autocar/go-autocar/internal/log"
	"github.com/autocar/go-autocar/pkg/hub"
	"github.com/autocar/go-autocar/pkg/pilot"
)

// Commander executes one command token and returns its status line.
type Commander interface {
	Execute(token string) (string, error)
}

// DistanceReader yields the current front distance.
type DistanceReader interface {
	DistanceCm() (float64, error)
}

// Odometer reports one wheel's accumulated travel.
type Odometer interface {
	Ticks() int64
	DistanceCm() float64
}

// PilotStatus reports the autonomous controller's mode.
type PilotStatus interface {
	Active() bool
	State() pilot.State
}

// SpeedSource yields the current drive speed.
type SpeedSource interface {
	Speed() float64
}

// Deps are the robot parts the server exposes.
type Deps struct {
	Commands   Commander
	Ranger     DistanceReader
	LeftWheel  Odometer
	RightWheel Odometer
	Speed      SpeedSource
	Pilot      PilotStatus
}

// Config tunes the server.
type Config struct {
	Port              string
	TelemetryInterval time.Duration
}

// DefaultTelemetryInterval is how often telemetry frames go out.
const DefaultTelemetryInterval = 500 * time.Millisecond

// Server is the robot's HTTP surface.
type Server struct {
	app  *fiber.App
	port string

	deps      Deps
	telemetry *hub.Hub
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewServer builds the fiber app and its routes.
func NewServer(cfg Config, deps Deps) *Server {
	interval := cfg.TelemetryInterval
	if interval <= 0 {
		interval = DefaultTelemetryInterval
	}
	s := &Server{
		port:      cfg.Port,
		deps:      deps,
		telemetry: hub.New("telemetry"),
		interval:  interval,
		stop:      make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "AutoCar API",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/ip", s.handleIP)
	app.Get("/distance", s.handleDistance)
	app.Get("/odometry", s.handleOdometry)
	app.Get("/status", s.handleStatus)
	app.Post("/control", s.handleControl)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// Start runs the hub, the telemetry loop and the listener. Blocks.
func (s *Server) Start() error {
	log.Info("api listening", "port", s.port)
	go s.telemetry.Run()
	go s.telemetryLoop()
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("api server", "err", err)
		}
	}()
}

// Shutdown stops the telemetry loop and the listener. Safe to call more
// than once.
func (s *Server) Shutdown() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.app.Shutdown()
}

// Telemetry is one websocket frame.
type Telemetry struct {
	DistanceCm float64 `json:"distance_cm"`
	LeftTicks  int64   `json:"left_ticks"`
	RightTicks int64   `json:"right_ticks"`
	LeftCm     float64 `json:"left_cm"`
	RightCm    float64 `json:"right_cm"`
	Speed      float64 `json:"speed"`
	Auto       bool    `json:"auto"`
	State      string  `json:"state"`
}

func (s *Server) telemetryLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.telemetry.ClientCount() == 0 {
				continue
			}
			s.telemetry.BroadcastJSON(s.frame())
		}
	}
}

func (s *Server) frame() Telemetry {
	f := Telemetry{
		LeftTicks:  s.deps.LeftWheel.Ticks(),
		RightTicks: s.deps.RightWheel.Ticks(),
		LeftCm:     round2(s.deps.LeftWheel.DistanceCm()),
		RightCm:    round2(s.deps.RightWheel.DistanceCm()),
		Speed:      s.deps.Speed.Speed(),
		Auto:       s.deps.Pilot.Active(),
		State:      s.deps.Pilot.State().String(),
	}
	if d, err := s.deps.Ranger.DistanceCm(); err == nil {
		f.DistanceCm = round2(d)
	} else {
		f.DistanceCm = -1
	}
	return f
}
