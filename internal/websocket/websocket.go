package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/game"
	"github.com/balllder/holiday-wheel/internal/utils"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// =============================================================================
// HUB
// =============================================================================

type client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks live connections and the rooms each one joined. It implements
// game.Transport.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	rooms    map[string]map[string]struct{}
	memberOf map[string]map[string]struct{}
}

var _ game.Transport = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		rooms:    make(map[string]map[string]struct{}),
		memberOf: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()
	log.Info().Str("conn", c.id).Int64("user", c.userID).Int("clients", total).Msg("[Hub] client connected")
}

// unregister removes conn, closes its send channel and returns the rooms it
// had joined.
func (h *Hub) unregister(conn string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[conn]
	if !ok {
		return nil
	}
	delete(h.clients, conn)
	close(c.send)

	joined := make([]string, 0, len(h.memberOf[conn]))
	for room := range h.memberOf[conn] {
		joined = append(joined, room)
		delete(h.rooms[room], conn)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.memberOf, conn)
	sort.Strings(joined)

	log.Info().Str("conn", conn).Strs("rooms", joined).Int("clients", len(h.clients)).Msg("[Hub] client disconnected")
	return joined
}

// Join adds conn to room. Unknown connections are ignored.
func (h *Hub) Join(room, conn string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]struct{})
	}
	h.rooms[room][conn] = struct{}{}
	if h.memberOf[conn] == nil {
		h.memberOf[conn] = make(map[string]struct{})
	}
	h.memberOf[conn][room] = struct{}{}
}

// RoomsOf returns the rooms conn joined, sorted.
func (h *Hub) RoomsOf(conn string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.memberOf[conn]))
	for room := range h.memberOf[conn] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Members returns the number of connections in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Send(conn string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("conn", conn).Msg("[Send] marshal failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[conn]; ok {
		h.deliver(c, data)
	}
}

func (h *Hub) Broadcast(room string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("[Broadcast] marshal failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[room] {
		if c, ok := h.clients[conn]; ok {
			h.deliver(c, data)
		}
	}
}

// deliver must be called with h.mu held. A client whose buffer is full is
// disconnected; its read pump then unregisters it.
func (h *Hub) deliver(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("conn", c.id).Msg("[Hub] send buffer full, dropping client")
		if c.conn != nil {
			go c.conn.Close()
		}
	}
}

// =============================================================================
// CONNECTION HANDLING
// =============================================================================

// Dispatcher runs inbound commands and cleans up after a connection leaves.
// *game.Service satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, c game.Caller, msgType string, raw json.RawMessage) error
	Disconnect(ctx context.Context, conn string, rooms []string)
}

type Handler struct {
	hub *Hub
	svc Dispatcher
	// Identify returns the logged-in user for the upgrade request, 0 when
	// anonymous.
	Identify func(r *http.Request) int64
}

func NewHandler(hub *Hub, svc Dispatcher, identify func(r *http.Request) int64) *Handler {
	if identify == nil {
		identify = func(*http.Request) int64 { return 0 }
	}
	return &Handler{hub: hub, svc: svc, Identify: identify}
}

// HandleWebSocket upgrades the request, greets the client with its connection
// id and serves it until the socket closes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := h.Identify(r)

	id, err := utils.NewConnID()
	if err != nil {
		log.Error().Err(err).Msg("[HandleWebSocket] failed to generate connection id")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("[HandleWebSocket] upgrade failed")
		return
	}

	c := &client{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.hub.register(c)
	h.hub.Send(c.id, internal.Message[internal.HelloData]{
		Type: "hello",
		Data: internal.HelloData{ConnID: c.id},
	})

	go h.writePump(c)
	h.readPump(context.WithoutCancel(r.Context()), c)
}

func (h *Handler) readPump(ctx context.Context, c *client) {
	defer func() {
		rooms := h.hub.unregister(c.id)
		c.conn.Close()
		h.svc.Disconnect(ctx, c.id, rooms)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("[readPump] unexpected close")
			}
			return
		}

		var in internal.Message[json.RawMessage]
		if err := json.Unmarshal(raw, &in); err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("[readPump] bad message")
			continue
		}
		h.dispatch(ctx, c, in)
	}
}

// dispatch runs one command. A panic is logged and reported to the sender so
// the connection survives it.
func (h *Handler) dispatch(ctx context.Context, c *client, in internal.Message[json.RawMessage]) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("conn", c.id).Str("type", in.Type).Msg("[dispatch] recovered")
			h.hub.Send(c.id, toast("Server error."))
		}
	}()

	err := h.svc.Dispatch(ctx, game.Caller{Conn: c.id, UserID: c.userID}, in.Type, in.Data)
	switch {
	case err == nil:
	case errors.Is(err, game.ErrUnknownCommand):
		log.Debug().Str("conn", c.id).Str("type", in.Type).Msg("[dispatch] unknown message type")
	default:
		log.Error().Err(err).Str("conn", c.id).Str("type", in.Type).Msg("[dispatch] command failed")
		h.hub.Send(c.id, toast("Something went wrong, try again."))
	}
}

func (h *Handler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("[writePump] write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func toast(text string) internal.Message[internal.ToastData] {
	return internal.Message[internal.ToastData]{Type: "toast", Data: internal.ToastData{Msg: text}}
}
