package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

const (
	writeWait   = 5 * time.Second
	readWait    = 60 * time.Second
	clientQueue = 64
)

type client struct {
	partyID string
	send    chan []byte
}

// Hub pushes notices to websocket clients. Each client subscribes to one
// party with ?party=<id>; a client without a party receives only broadcasts.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{partyID: r.URL.Query().Get("party"), send: make(chan []byte, clientQueue)}
	h.register(c)
	defer h.unregister(c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for b := range c.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}()

	// clients do not talk back; reading only notices the close
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(c)
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Send delivers n to the clients of its target party, or to everyone when
// the notice has no target. Slow clients miss notices rather than block.
func (h *Hub) Send(n domain.Notice) {
	b, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("encode notice", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if n.TargetID != "" && c.partyID != n.TargetID {
			continue
		}
		select {
		case c.send <- b:
		default:
			h.logger.Warn("dropping notice for slow client", zap.String("party", c.partyID))
		}
	}
}

// Clients reports how many websocket clients are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
