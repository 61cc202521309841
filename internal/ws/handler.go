package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxMessageSize = 4 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Webviews load arbitrary origins
	},
}

// Publisher receives page events; *events.Bus implements it
type Publisher interface {
	Publish(ev events.Event)
}

// Recorder counts frames; *monitoring.Metrics implements it
type Recorder interface {
	RecordWSMessage(direction, msgType string)
}

// Handler manages bridge and listener connections
type Handler struct {
	registry *surface.Registry
	bus      Publisher
	recorder Recorder
	logger   *zap.Logger

	mu        sync.RWMutex
	listeners map[id.ConnectionID]*conn
}

// NewHandler creates a WebSocket handler. recorder may be nil.
func NewHandler(registry *surface.Registry, bus Publisher, recorder Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		registry:  registry,
		bus:       bus,
		recorder:  recorder,
		logger:    logger,
		listeners: make(map[id.ConnectionID]*conn),
	}
}

// HandleBridge attaches a webview as the content surface named by ?label=
func (h *Handler) HandleBridge(c *gin.Context) {
	label := c.Query("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label query parameter required"})
		return
	}
	if err := utils.ValidateLabel(label); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("label", label), zap.Error(err))
		return
	}
	ws.SetReadLimit(maxMessageSize)

	cn := newConn(ws)
	s := &contentSurface{label: label, conn: cn}
	h.registry.Attach(s)
	defer func() {
		h.registry.Detach(s)
		cn.close()
	}()

	logger := h.logger.With(zap.String("label", label), zap.String("conn", cn.id.String()))
	logger.Info("content surface attached")

	ctx := c.Request.Context()
	h.send(ctx, cn, Message{
		Type:      TypeSystem,
		Label:     label,
		Message:   "attached",
		Timestamp: time.Now().Unix(),
	})

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("bridge read error", zap.Error(err))
			}
			break
		}
		h.count("in", msg.Type)

		switch msg.Type {
		case TypeEvent:
			if msg.Event == "" {
				h.sendError(ctx, cn, "event name required")
				continue
			}
			if err := utils.ValidateTopic(msg.Event); err != nil {
				h.sendError(ctx, cn, err.Error())
				continue
			}
			payload := msg.Payload
			if len(payload) == 0 {
				payload = []byte("null")
			}
			h.bus.Publish(events.Event{Topic: msg.Event, Payload: payload, Source: label})
		case TypePing:
			h.send(ctx, cn, Message{Type: TypePong})
		default:
			h.sendError(ctx, cn, "unknown message type")
		}
	}

	logger.Info("content surface detached")
}

// HandleEvents registers a shell listener for broadcast events
func (h *Handler) HandleEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxMessageSize)

	cn := newConn(ws)
	h.mu.Lock()
	h.listeners[cn.id] = cn
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.listeners, cn.id)
		h.mu.Unlock()
		cn.close()
	}()

	ctx := c.Request.Context()
	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
		h.count("in", msg.Type)
		if msg.Type == TypePing {
			h.send(ctx, cn, Message{Type: TypePong})
		}
	}
}

// Broadcast sends ev to every listener. The payload is forwarded untouched.
func (h *Handler) Broadcast(ev events.Event) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.listeners))
	for _, cn := range h.listeners {
		targets = append(targets, cn)
	}
	h.mu.RUnlock()

	msg := Message{Type: TypeEvent, Event: ev.Topic, Payload: ev.Payload, Label: ev.Source}
	for _, cn := range targets {
		h.send(context.Background(), cn, msg)
	}
}

// Listeners returns the number of connected shell listeners
func (h *Handler) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Close disconnects every listener
func (h *Handler) Close() {
	h.mu.Lock()
	conns := h.listeners
	h.listeners = make(map[id.ConnectionID]*conn)
	h.mu.Unlock()

	for _, cn := range conns {
		cn.close()
	}
}

func (h *Handler) send(ctx context.Context, cn *conn, msg Message) {
	if err := cn.send(ctx, msg); err != nil {
		h.logger.Debug("websocket write failed", zap.String("conn", cn.id.String()), zap.Error(err))
		return
	}
	h.count("out", msg.Type)
}

func (h *Handler) sendError(ctx context.Context, cn *conn, text string) {
	h.send(ctx, cn, Message{Type: TypeError, Message: text, Timestamp: time.Now().Unix()})
}

func (h *Handler) count(direction, msgType string) {
	if h.recorder != nil {
		h.recorder.RecordWSMessage(direction, msgType)
	}
}
