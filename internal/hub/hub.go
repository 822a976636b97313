package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// EventHandler is implemented by the session manager; the hub stays a dumb
// pipe that owns sockets only.
type EventHandler interface {
	HandleEvent(connID string, ev models.Event)
	HandleDisconnect(connID string)
}

// conn is one websocket with serialized writes (concurrent WriteJSON on a
// gorilla conn is not safe).
type conn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(ev models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(ev)
}

// Hub owns every live websocket and the per-room leaderboard throttles.
type Hub struct {
	upgrader websocket.Upgrader
	handler  EventHandler
	fanout   *Fanout
	window   time.Duration

	mu        sync.RWMutex
	conns     map[string]*conn
	throttles map[string]*Throttle
}

func New(window time.Duration, fanout *Fanout) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		fanout:    fanout,
		window:    window,
		conns:     make(map[string]*conn),
		throttles: make(map[string]*Throttle),
	}
}

// SetHandler wires the session manager in after construction (the manager
// needs the hub as its broadcaster, so the two are built in sequence).
func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

// ServeWS upgrades the request and pumps inbound events until the socket
// dies.
func (h *Hub) ServeWS(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cn := &conn{id: uuid.NewString(), ws: ws}
	h.mu.Lock()
	h.conns[cn.id] = cn
	h.mu.Unlock()
	log.Info().Str("conn", cn.id).Msg("connection opened")

	ws.SetReadLimit(maxMessageSize)
	defer func() {
		h.mu.Lock()
		delete(h.conns, cn.id)
		h.mu.Unlock()
		_ = ws.Close()
		if h.handler != nil {
			h.handler.HandleDisconnect(cn.id)
		}
		log.Info().Str("conn", cn.id).Msg("connection closed")
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			_ = cn.send(models.Event{Type: models.EventError, Data: "malformed event"})
			continue
		}
		if h.handler != nil {
			h.handler.HandleEvent(cn.id, ev)
		}
	}
}

// SendTo delivers an event to one connection; unknown ids are a no-op.
func (h *Hub) SendTo(connID string, ev models.Event) {
	h.mu.RLock()
	cn := h.conns[connID]
	h.mu.RUnlock()
	if cn == nil {
		return
	}
	if err := cn.send(ev); err != nil {
		log.Warn().Err(err).Str("conn", connID).Msg("send failed")
	}
}

// Send delivers an event to a set of connections and mirrors it to the
// fanout layer when the event belongs to a room.
func (h *Hub) Send(connIDs []string, ev models.Event) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(connIDs))
	for _, id := range connIDs {
		if cn := h.conns[id]; cn != nil {
			targets = append(targets, cn)
		}
	}
	h.mu.RUnlock()

	for _, cn := range targets {
		if err := cn.send(ev); err != nil {
			log.Warn().Err(err).Str("conn", cn.id).Msg("broadcast send failed")
		}
	}
	if ev.Room != "" {
		h.fanout.Publish(ev.Room, ev)
	}
}

// Leaderboard routes an update through the room's throttle: leading edge
// fires immediately, bursts coalesce into one trailing fire per window.
func (h *Hub) Leaderboard(roomCode string, connIDs []string, ev models.Event) {
	h.mu.Lock()
	th, ok := h.throttles[roomCode]
	if !ok {
		th = NewThrottle(h.window)
		h.throttles[roomCode] = th
	}
	h.mu.Unlock()

	th.Do(func() {
		h.Send(connIDs, ev)
	})
}

// DropRoom releases the room's throttle when the room is destroyed.
func (h *Hub) DropRoom(roomCode string) {
	h.mu.Lock()
	if th, ok := h.throttles[roomCode]; ok {
		th.Stop()
		delete(h.throttles, roomCode)
	}
	h.mu.Unlock()
}

// ConnCount reports live connections for the stats surface.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Shutdown notifies every connected client, then closes all sockets. Used by
// the graceful drain on SIGTERM.
func (h *Hub) Shutdown(message string) {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for _, cn := range h.conns {
		conns = append(conns, cn)
	}
	for _, th := range h.throttles {
		th.Stop()
	}
	h.mu.Unlock()

	for _, cn := range conns {
		_ = cn.send(models.Event{Type: models.EventShutdown, Data: message})
		_ = cn.ws.Close()
	}
	h.fanout.Close()
}
