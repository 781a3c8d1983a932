package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/audit"
	"github.com/raaihank/data-sentinel/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	id           string
	conn         *websocket.Conn
	send         chan Event
	subscription *Subscription
	mu           sync.Mutex
}

// Hub fans audit activity out to websocket subscribers. One goroutine owns
// the client set; a slow client is dropped rather than allowed to stall the
// broadcast loop.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	log        *logger.Logger

	mu     sync.RWMutex
	active int
	status func() SystemStatus
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log.WithComponent("events"),
	}
}

// statusPeriod is how often the hub pushes a system_status snapshot to
// subscribers when a status source is set.
const statusPeriod = 30 * time.Second

// SetStatus installs the snapshot source for system_status events. Must be
// called before Run.
func (h *Hub) SetStatus(fn func() SystemStatus) {
	h.mu.Lock()
	h.status = fn
	h.mu.Unlock()
}

// Run owns the client set until ctx is cancelled. After it returns the hub
// refuses new subscribers instead of blocking them.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("event hub started")
	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case event := <-h.broadcast:
			h.send(event)
		case <-ticker.C:
			h.mu.RLock()
			status := h.status
			h.mu.RUnlock()
			if status != nil {
				h.send(Event{
					Type:      TypeSystemStatus,
					Timestamp: time.Now().UTC(),
					Data:      status(),
				})
			}
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.active = 0
			h.mu.Unlock()
			close(h.done)
			return
		}
	}
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.active = len(h.clients)
	h.mu.Unlock()
	h.log.Info("subscriber connected", zap.String("client_id", c.id))
	h.Broadcast(Event{
		Type:      TypeConnection,
		Timestamp: time.Now().UTC(),
		Data:      Connection{Action: "connected", ClientID: c.id},
	})
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.active = len(h.clients)
		h.mu.Unlock()
		h.log.Info("subscriber disconnected", zap.String("client_id", c.id))
		return
	}
	h.mu.Unlock()
}

func (h *Hub) send(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(event.Type) {
			continue
		}
		select {
		case c.send <- event:
		default:
			h.log.Warn("subscriber too slow, dropping", zap.String("client_id", c.id))
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.active = len(h.clients)
}

// Broadcast queues an event for delivery. The feed is best-effort: a full
// queue drops the event instead of blocking the pipeline.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("broadcast queue full, dropping event", zap.String("type", string(event.Type)))
	}
}

// ActiveClients reports the current subscriber count.
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// HandleWebSocket upgrades the request and attaches the subscriber.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, 256),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) wants(t Type) bool {
	c.mu.Lock()
	sub := c.subscription
	c.mu.Unlock()
	if sub == nil || len(sub.Events) == 0 {
		return true
	}
	for _, want := range sub.Events {
		if want == t {
			return true
		}
	}
	return false
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "subscribe" {
			sub := msg.Data
			c.mu.Lock()
			c.subscription = &sub
			c.mu.Unlock()
		}
	}
}

// Sink adapts the hub to the audit sink contract so it can join an audit
// fanout. Entries are grouped per write, which corresponds to one run.
type Sink struct {
	hub *Hub
}

func NewSink(hub *Hub) *Sink { return &Sink{hub: hub} }

func (s *Sink) Write(_ context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	actions := make(map[string]int, 4)
	for _, e := range entries {
		actions[e.Action]++
	}
	s.hub.Broadcast(Event{
		Type:      TypeScrubActivity,
		Timestamp: time.Now().UTC(),
		Data: ScrubActivity{
			RunID:   entries[0].RunID,
			Dataset: entries[0].Dataset,
			Actions: actions,
			Entries: entries,
		},
	})
	return nil
}

func (s *Sink) Close() error { return nil }
