package http

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
	"github.com/samirrijal/fieldtrace/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Employee string `json:"employee"` // employee id filter (optional, "" = all)
	Channel  string `json:"channel"`  // "live" | "alerts" (default: live)
}

// WebSocketHandler returns a handler that upgrades to WebSocket
// and relays real-time NATS events to connected clients.
// Clients send JSON: {"action":"subscribe","employee":"e1","channel":"live"}
// An empty employee means all employees. Default channel is "live".
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		log.Printf("ws client connected: %s", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Auto-subscribe to all live updates by default
		defaultSubject := "field.live.>"
		sub, err := nc.Subscribe(defaultSubject, func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		})
		if err != nil {
			log.Printf("ws default subscribe error: %v", err)
			return
		}
		subs[defaultSubject] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			// Build NATS subject
			channel := m.Channel
			if channel == "" {
				channel = "live"
			}

			var subject string
			switch channel {
			case "live":
				if m.Employee != "" {
					subject = "field.live." + m.Employee
				} else {
					subject = "field.live.>"
				}
			case "alerts":
				subject = "field.alerts.idle"
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Printf("ws client disconnected: %s", remoteAddr)
	}
}

// WatchHandler streams one employee's filtered position watch over the
// socket. The tracker applies the staleness and movement filters; source
// failures and quiet-stream timeouts arrive as error messages, the socket
// stays open across them.
func WatchHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		id := c.Params("id")
		if id == "" {
			_ = writeJSON(map[string]string{"error": "employee id is required"})
			return
		}
		if deps.Positions == nil {
			_ = writeJSON(map[string]string{"error": "position feed unavailable"})
			return
		}

		tracker := usecases.NewLocationTracker(deps.Positions, usecases.TrackerConfig{})
		handle, err := tracker.Start(id,
			func(pos domain.Position) {
				_ = writeJSON(pos)
			},
			func(kind ports.TrackErrorKind) {
				_ = writeJSON(map[string]string{
					"error":   string(kind),
					"message": kind.Message(),
				})
			},
		)
		if err != nil {
			_ = writeJSON(map[string]string{"error": "watch failed: " + err.Error()})
			return
		}
		defer handle.Stop()

		log.Printf("ws watch started: %s employee=%s", c.RemoteAddr().String(), id)

		// Hold the socket open until the client goes away.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}
}
