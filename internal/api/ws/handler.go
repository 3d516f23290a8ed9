package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/casdk/internal/domain/app"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/shared/id"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/GriffinCanCode/casdk/internal/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 2 * pingInterval
	maxReadSize  = utils.MaxBodySize
)

var upgrader = websocket.Upgrader{
	// The host shell connects from a file origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is a client request.
type Message struct {
	Type  string   `json:"type"`
	IDs   []string `json:"ids,omitempty"`
	All   bool     `json:"all,omitempty"`
	Event string   `json:"event,omitempty"`
}

// Handler streams data updates to WebSocket clients.
type Handler struct {
	apps    *app.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mu      sync.RWMutex
	clients map[id.ClientID]*client
}

type client struct {
	id   id.ClientID
	conn *websocket.Conn
	send chan any
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	filter map[string]bool // Empty means every id
	all    bool            // Include unchanged writes
}

// NewHandler creates a handler. apps may be nil, which disables
// controller messages.
func NewHandler(apps *app.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		apps:    apps,
		metrics: metrics,
		logger:  logging.OrNop(logger),
		clients: make(map[id.ClientID]*client),
	}
}

// HandleConnection upgrades the request and serves the client until it
// disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:     id.NewClientID(),
		conn:   conn,
		send:   make(chan any, sendBuffer),
		done:   make(chan struct{}),
		filter: make(map[string]bool),
	}
	h.add(cl)
	defer h.remove(cl)

	go h.writePump(cl)

	cl.push(map[string]any{
		"type":      "system",
		"client_id": cl.id,
		"message":   "Connected to casdk data stream",
	})
	h.readPump(c.Request.Context(), cl)
}

// OnValueChange implements telemetry.Listener.
func (h *Handler) OnValueChange(_ context.Context, ev types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, cl := range h.clients {
		if !cl.wants(ev) {
			continue
		}
		if !cl.push(map[string]any{"type": "data", "event": ev}) {
			h.logger.Debug("Dropping update for slow client", zap.String("client", cl.id.String()))
		}
	}
}

// Clients returns the number of connected clients.
func (h *Handler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Handler) Close() error {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		cl.close()
		_ = cl.conn.Close()
	}
	return nil
}

func (h *Handler) add(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	h.metrics.IncWSConnections()
	h.logger.Info("Stream client connected", zap.String("client", cl.id.String()))
}

func (h *Handler) remove(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl.id)
	h.mu.Unlock()
	cl.close()
	_ = cl.conn.Close()
	h.metrics.DecWSConnections()
	h.logger.Info("Stream client disconnected", zap.String("client", cl.id.String()))
}

func (h *Handler) readPump(ctx context.Context, cl *client) {
	cl.conn.SetReadLimit(maxReadSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg Message
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = cl.conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "subscribe":
			cl.subscribe(msg.IDs, msg.All)
			cl.push(map[string]any{"type": "subscribed", "ids": cl.ids()})
		case "unsubscribe":
			cl.unsubscribe(msg.IDs)
			cl.push(map[string]any{"type": "subscribed", "ids": cl.ids()})
		case "controller":
			h.handleController(ctx, cl, msg.Event)
		case "ping":
			cl.push(map[string]any{"type": "pong"})
		default:
			cl.pushError("unknown message type")
		}
	}
}

func (h *Handler) handleController(ctx context.Context, cl *client, event string) {
	if h.apps == nil {
		cl.pushError("controller events are disabled")
		return
	}
	if err := utils.ValidateEvent(event); err != nil {
		cl.pushError(err.Error())
		return
	}
	cl.push(map[string]any{
		"type":    "controller",
		"event":   event,
		"handled": h.apps.HandleControllerEvent(ctx, event),
	})
}

func (h *Handler) writePump(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			_ = cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case msg := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				cl.close()
				return
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				cl.close()
				return
			}
		}
	}
}

// push queues msg without blocking; false means the queue was full or the
// client is gone.
func (cl *client) push(msg any) bool {
	select {
	case <-cl.done:
		return false
	default:
	}
	select {
	case cl.send <- msg:
		return true
	default:
		return false
	}
}

func (cl *client) pushError(message string) {
	cl.push(map[string]any{
		"type":      "error",
		"message":   message,
		"timestamp": time.Now().Unix(),
	})
}

func (cl *client) close() {
	cl.once.Do(func() { close(cl.done) })
}

func (cl *client) subscribe(ids []string, all bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for _, i := range ids {
		cl.filter[strings.ToLower(i)] = true
	}
	cl.all = all
}

func (cl *client) unsubscribe(ids []string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for _, i := range ids {
		delete(cl.filter, strings.ToLower(i))
	}
}

func (cl *client) ids() []string {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	out := make([]string, 0, len(cl.filter))
	for i := range cl.filter {
		out = append(out, i)
	}
	return out
}

func (cl *client) wants(ev types.Event) bool {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if !ev.Changed && !cl.all {
		return false
	}
	return len(cl.filter) == 0 || cl.filter[ev.ID]
}
