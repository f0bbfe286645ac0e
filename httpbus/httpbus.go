// Package httpbus carries the cross-window event protocol over HTTP for
// the two-process setup: the control panel runs a Client, the display
// process runs a Server in front of its in-process bus. Sends stay
// fire-and-forget — a dead or unreachable peer just drops events.
package httpbus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/phanxgames/lantern"
)

// Server receives event envelopes over HTTP and re-emits them on a local
// transport, usually a MemoryBus the display views subscribe to.
type Server struct {
	app   *fiber.App
	local lantern.Emitter
}

// NewServer builds the HTTP front for local.
func NewServer(local lantern.Emitter) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			AppName:      "lantern display",
		}),
		local: local,
	}

	s.app.Use(recover.New())

	s.app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	s.app.Post("/events", s.handleEvent)

	return s
}

func (s *Server) handleEvent(c fiber.Ctx) error {
	var env lantern.Envelope
	if err := json.Unmarshal(c.Body(), &env); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed envelope",
		})
	}

	ev, err := lantern.DecodeEvent(env.Event, env.Payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.local.Emit(env.Window, ev)
	return c.JSON(fiber.Map{"status": "ok"})
}

// Listen serves on addr until the process exits or the listener fails.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Client sends events to a remote Server. It implements lantern.Emitter;
// delivery failures are logged and otherwise ignored.
type Client struct {
	base string
	http *http.Client
}

// NewClient targets the server at base, e.g. "http://127.0.0.1:8423".
func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// Emit posts ev to the remote server. Errors are dropped after a warning:
// the protocol promises nothing about windows nobody is listening on.
func (c *Client) Emit(window string, ev lantern.Event) {
	raw, err := lantern.EncodeEvent(window, ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[lantern] httpbus: encode %s: %v\n", ev.Name(), err)
		return
	}

	resp, err := c.http.Post(c.base+"/events", "application/json", bytes.NewReader(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "[lantern] httpbus: post %s: %v\n", ev.Name(), err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "[lantern] httpbus: post %s: status %d\n", ev.Name(), resp.StatusCode)
	}
}
