package tables

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/appetiteclub/tableside/services/ordering/internal/order"
	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

const (
	LiveRushStatus    = "rush.status"
	LiveOrderAccepted = "order.accepted"
	LiveScreenChanged = "screen.changed"

	liveSendBuffer   = 32
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
	livePongWait     = 60 * time.Second
)

// LiveMessage is pushed to websocket clients. Table is zero for messages that
// concern every table.
type LiveMessage struct {
	Type  string      `json:"type"`
	Table int         `json:"table,omitempty"`
	At    time.Time   `json:"at"`
	Data  interface{} `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type liveClient struct {
	id    string
	table int
	conn  *websocket.Conn
	send  chan []byte
}

// LiveHub fans rush status changes, accepted orders and screen changes out to
// table devices. A client that does not keep up loses messages.
type LiveHub struct {
	mu      sync.RWMutex
	clients map[string]*liveClient
	logger  apt.Logger
}

func NewLiveHub(logger apt.Logger) *LiveHub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &LiveHub{
		clients: make(map[string]*liveClient),
		logger:  logger,
	}
}

// ServeHTTP upgrades the request. The optional table query parameter limits
// table scoped messages to that table.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := 0
	if raw := r.URL.Query().Get("table"); raw != "" {
		n, err := session.ParseTableNumber(raw)
		if err != nil {
			apt.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		table = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("cannot upgrade live connection", "error", err)
		return
	}

	c := &liveClient{
		id:    uuid.NewString(),
		table: table,
		conn:  conn,
		send:  make(chan []byte, liveSendBuffer),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("live client connected", "client_id", c.id, "table", table)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *LiveHub) Publish(msg LiveMessage) {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("cannot encode live message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if msg.Table != 0 && c.table != 0 && c.table != msg.Table {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("live client lagging, message dropped", "client_id", c.id, "type", msg.Type)
		}
	}
}

// RushChanged is a rush.Listener.
func (h *LiveHub) RushChanged(_ context.Context, _, next rush.Status) {
	h.Publish(LiveMessage{Type: LiveRushStatus, Data: next})
}

func (h *LiveHub) OrderAccepted(r order.Receipt) {
	h.Publish(LiveMessage{Type: LiveOrderAccepted, Table: r.TableNumber, Data: r})
}

func (h *LiveHub) ScreenChanged(st session.State) {
	h.Publish(LiveMessage{Type: LiveScreenChanged, Table: st.TableNumber, Data: st})
}

func (h *LiveHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *LiveHub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*liveClient)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
	return nil
}

func (h *LiveHub) remove(c *liveClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Debug("live client disconnected", "client_id", c.id)
	}
}

// readPump discards client messages and detects disconnects.
func (h *LiveHub) readPump(c *liveClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live connection error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (h *LiveHub) writePump(c *liveClient) {
	ticker := time.NewTicker(livePingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
