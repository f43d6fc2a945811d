package ws

import (
	"strconv"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

// Client is one live websocket connection.
type Client struct {
	SessionID string
	Attrs     domain.ConnectionAttributes

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient builds a client with a bounded outbound queue.
func NewClient(sessionID string, attrs domain.ConnectionAttributes, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{
		SessionID: sessionID,
		Attrs:     attrs,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

// Enqueue queues payload without blocking. It reports false when the client
// is closed or its queue is full.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Outbound is drained by the connection writer.
func (c *Client) Outbound() <-chan []byte { return c.send }

// Done is closed once the client is shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops further deliveries. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

type clientSet = *xsync.MapOf[string, *Client]

// Hub routes payloads to connections by principal name.
type Hub struct {
	principals *xsync.MapOf[string, clientSet]
	registry   *WatchRegistry
	logger     *zap.Logger
}

// NewHub builds a hub that consults registry for watcher fan-out.
func NewHub(registry *WatchRegistry, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		principals: xsync.NewMapOf[string, clientSet](),
		registry:   registry,
		logger:     logger,
	}
}

// Register makes c reachable under its principal name.
func (h *Hub) Register(c *Client) {
	h.principals.Compute(c.Attrs.PrincipalName, func(set clientSet, loaded bool) (clientSet, bool) {
		if !loaded {
			set = xsync.NewMapOf[string, *Client]()
		}
		set.Store(c.SessionID, c)
		return set, false
	})
}

// Unregister removes c and closes it.
func (h *Hub) Unregister(c *Client) {
	h.principals.Compute(c.Attrs.PrincipalName, func(set clientSet, loaded bool) (clientSet, bool) {
		if !loaded {
			return set, true
		}
		set.Delete(c.SessionID)
		return set, set.Size() == 0
	})
	c.Close()
}

// SendToPrincipal delivers payload to every connection of principal and
// returns how many accepted it.
func (h *Hub) SendToPrincipal(principal string, payload []byte) int {
	set, ok := h.principals.Load(principal)
	if !ok {
		return 0
	}
	delivered := 0
	set.Range(func(sessionID string, c *Client) bool {
		if c.Enqueue(payload) {
			delivered++
		} else {
			h.logger.Warn("dropping websocket message",
				zap.String("principal", principal),
				zap.String("session_id", sessionID))
		}
		return true
	})
	return delivered
}

// NotifyCustomer sends payload to the customer and to every admin watching them.
func (h *Hub) NotifyCustomer(customerID int64, payload []byte) int {
	delivered := h.SendToPrincipal("customer:"+strconv.FormatInt(customerID, 10), payload)
	for _, adminID := range h.registry.GetAdmins(customerID) {
		delivered += h.SendToPrincipal("admin:"+strconv.FormatInt(adminID, 10), payload)
	}
	return delivered
}

// Connected reports whether principal has at least one live connection.
func (h *Hub) Connected(principal string) bool {
	set, ok := h.principals.Load(principal)
	return ok && set.Size() > 0
}
