package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/events"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/observability"
)

const writeWait = 10 * time.Second

// Inbound frame types.
const (
	FrameWatch = "watch"
	FramePing  = "ping"
)

type inboundFrame struct {
	Type       string `json:"type"`
	CustomerID *int64 `json:"customerId"`
}

type outboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Handler serves upgraded websocket connections.
type Handler struct {
	hub        *Hub
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	readLimit  int64
	sendBuffer int
}

// HandlerConfig bundles Handler dependencies.
type HandlerConfig struct {
	Hub        *Hub
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	ReadLimit  int64
	SendBuffer int
}

// NewHandler constructs a connection handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		hub:        cfg.Hub,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		readLimit:  cfg.ReadLimit,
		sendBuffer: cfg.SendBuffer,
	}
}

// Serve runs one connection until the peer goes away. The identity resolved at
// handshake is fixed for the connection's lifetime.
func (h *Handler) Serve(conn *websocket.Conn) {
	attrs, ok := conn.Locals(AttributesKey).(domain.ConnectionAttributes)
	if !ok {
		attrs = domain.ConnectionAttributes{PrincipalName: PrincipalName("", nil)}
	}
	client := NewClient(uuid.NewString(), attrs, h.sendBuffer)
	actor := events.Actor{Role: attrs.Role, UserID: attrs.UserID}
	logger := h.logger.With(zap.String("session_id", client.SessionID), zap.String("principal", attrs.PrincipalName))
	ctx := context.Background()

	h.hub.Register(client)
	h.metrics.SessionOpened()
	_ = h.dispatcher.Publish(ctx, events.NewEvent(events.EventSessionConnected, client.SessionID, actor, nil))
	logger.Info("websocket connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, client, logger)
	}()

	defer func() {
		h.hub.Unregister(client)
		<-writerDone
		_ = h.dispatcher.Publish(ctx, events.NewEvent(events.EventSessionDisconnected, client.SessionID, actor, nil))
		h.metrics.SessionClosed()
		logger.Info("websocket disconnected")
	}()

	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		h.handleFrame(ctx, client, actor, data)
	}
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, actor events.Actor, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.reply(client, outboundFrame{Type: "error", Message: "invalid frame"})
		return
	}

	switch frame.Type {
	case FramePing:
		h.reply(client, outboundFrame{Type: "pong"})
	case FrameWatch:
		if !client.Attrs.IsAdmin() || client.Attrs.UserID == nil {
			h.reply(client, outboundFrame{Type: "error", Message: "watch requires an admin session"})
			return
		}
		if frame.CustomerID == nil {
			h.reply(client, outboundFrame{Type: "error", Message: "customerId required"})
			return
		}
		_ = h.dispatcher.Publish(ctx, events.NewEvent(events.EventCustomerWatched, client.SessionID, actor,
			events.CustomerWatchedPayload{CustomerID: *frame.CustomerID}))
		h.reply(client, outboundFrame{Type: "watching"})
	default:
		h.reply(client, outboundFrame{Type: "error", Message: "unsupported frame type"})
	}
}

func (h *Handler) reply(client *Client, frame outboundFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	client.Enqueue(payload)
}

// frameWriter is the write side of a websocket connection.
type frameWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// writeLoop is the only goroutine writing to conn.
func (h *Handler) writeLoop(conn frameWriter, client *Client, logger *zap.Logger) {
	for {
		select {
		case <-client.Done():
			return
		case payload := <-client.Outbound():
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Debug("websocket set write deadline failed", zap.Error(err))
				client.Close()
				_ = conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				client.Close()
				_ = conn.Close()
				return
			}
		}
	}
}
