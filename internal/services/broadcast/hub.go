package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/logging"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	role models.CameraRole // empty receives everything
}

// Hub fans envelopes out to websocket clients. A client whose buffer is
// full is disconnected instead of slowing the publisher down.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*client]struct{}
	writeTimeout time.Duration
	sendBuffer   int
	logger       zerolog.Logger
	closed       bool
}

func NewHub(cfg *config.Config) *Hub {
	buf := cfg.WSSendBuffer
	if buf <= 0 {
		buf = 64
	}
	timeout := cfg.WSWriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Hub{
		clients:      make(map[*client]struct{}),
		writeTimeout: timeout,
		sendBuffer:   buf,
		logger:       logging.NewServiceLogger(cfg, "broadcast"),
	}
}

// ServeWS upgrades the request. An optional ?role= query restricts the
// feed to one camera plus site-wide messages.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	var role models.CameraRole
	if q := strings.TrimSpace(r.URL.Query().Get("role")); q != "" {
		parsed, err := models.ParseCameraRole(q)
		if err != nil {
			return err
		}
		role = parsed
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer), role: role}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return fmt.Errorf("hub is shut down")
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Str("remote", r.RemoteAddr).Str("camera_role", string(role)).Int("clients", total).Msg("Client connected")

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", total).Msg("Client disconnected")
}

// readPump only drains control frames so close and pong are observed
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug().Err(err).Msg("Error sending message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish implements models.MessagePublisher
func (h *Hub) Publish(_ context.Context, env models.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if c.role != "" && env.Role != "" && c.role != env.Role {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn().Msg("Dropping slow websocket client")
		h.remove(c)
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client connection
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Info().Msg("WebSocket hub shut down")
	return nil
}
