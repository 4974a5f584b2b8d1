// drive sends a single command token to a running autocar daemon, or
// tails its telemetry stream.
//
// Usage:
//
//	drive forward_start
//	drive -addr 192.168.1.40:5000 speed+
//	drive -watch
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/autocar/go-autocar/internal/config"
	"github.com/autocar/go-autocar/internal/httpc"
)

func main() {
	addr := flag.String("addr", config.ServerAddr(), "daemon host:port")
	watch := flag.Bool("watch", false, "stream telemetry instead of sending a command")
	flag.Parse()

	if *watch {
		if err := watchTelemetry(*addr); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: drive [-addr host:port] <command>")
		fmt.Fprintln(os.Stderr, "       drive [-addr host:port] -watch")
		os.Exit(2)
	}

	if err := send(*addr, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func send(addr, token string) error {
	url := fmt.Sprintf("http://%s/control", addr)
	resp, err := httpc.Post(url, "text/plain", []byte(token))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Print(string(body))
	if resp.StatusCode != 200 {
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	return nil
}

// watchTelemetry prints telemetry frames until interrupted.
func watchTelemetry(addr string) error {
	url := fmt.Sprintf("ws://%s/ws/telemetry", addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	frames := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errs <- err
				return
			}
			frames <- msg
		}
	}()

	for {
		select {
		case <-sigChan:
			return nil
		case err := <-errs:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		case msg := <-frames:
			fmt.Println(string(msg))
		}
	}
}
