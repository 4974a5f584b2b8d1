package web

import (
	"math"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/autocar/go-autocar/internal/log"
	"github.com/autocar/go-autocar/pkg/hub"
)

// handleIndex is a liveness line for curl.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.SendString("AutoCar API Online\n")
}

// handleIP reports the robot's outbound interface address, so a client on
// the same network can find it after a DHCP move.
func (s *Server) handleIP(c *fiber.Ctx) error {
	ip, err := outboundIP()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ip": ip})
}

// handleDistance returns the current front distance in centimeters,
// rounded to two decimals.
func (s *Server) handleDistance(c *fiber.Ctx) error {
	d, err := s.deps.Ranger.DistanceCm()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"distance": round2(d)})
}

// handleOdometry returns per-wheel tick counts and travel.
func (s *Server) handleOdometry(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"left": fiber.Map{
			"ticks":       s.deps.LeftWheel.Ticks(),
			"distance_cm": round2(s.deps.LeftWheel.DistanceCm()),
		},
		"right": fiber.Map{
			"ticks":       s.deps.RightWheel.Ticks(),
			"distance_cm": round2(s.deps.RightWheel.DistanceCm()),
		},
	})
}

// handleStatus returns speed and pilot mode.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"speed": s.deps.Speed.Speed(),
		"auto":  s.deps.Pilot.Active(),
		"state": s.deps.Pilot.State().String(),
	})
}

// handleControl executes the command token in the request body. The whole
// body is the token, case-sensitive. Routing failures are client errors;
// the status line is returned either way.
func (s *Server) handleControl(c *fiber.Ctx) error {
	token := strings.TrimSpace(string(c.Body()))
	reqID := uuid.NewString()

	status, err := s.deps.Commands.Execute(token)
	if err != nil {
		log.Warn("command failed", "id", reqID, "token", token, "status", status, "err", err)
		return c.Status(fiber.StatusBadRequest).SendString(status + "\n")
	}
	log.Info("command executed", "id", reqID, "token", token, "status", status)
	return c.SendString(status + "\n")
}

// handleTelemetryWS streams telemetry frames until the client goes away.
func (s *Server) handleTelemetryWS(conn *websocket.Conn) {
	client := hub.NewClient(s.telemetry, conn)
	client.Run()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// outboundIP finds the local address a routed packet would leave from.
// No traffic is sent; the connected UDP socket just resolves the route.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", net.InvalidAddrError("unexpected local address")
	}
	return addr.IP.String(), nil
}
