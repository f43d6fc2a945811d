package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

func newTestClient(session, role string, userID int64, buffer int) *Client {
	return NewClient(session, domain.ConnectionAttributes{
		Role:          role,
		UserID:        &userID,
		PrincipalName: PrincipalName(role, &userID),
	}, buffer)
}

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg := <-c.Outbound():
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestNotifyCustomerReachesWatchers(t *testing.T) {
	registry := NewWatchRegistry()
	hub := NewHub(registry, nil)

	customer := newTestClient("c1", "customer", 100, 4)
	customerTab := newTestClient("c2", "customer", 100, 4)
	watcher := newTestClient("a1", "admin", 7, 4)
	bystander := newTestClient("a2", "admin", 8, 4)
	for _, c := range []*Client{customer, customerTab, watcher, bystander} {
		hub.Register(c)
	}
	registry.Watch(ptr(int64(7)), ptr(int64(100)))

	delivered := hub.NotifyCustomer(100, []byte(`{"type":"message"}`))
	assert.Equal(t, 3, delivered)
	assert.Equal(t, []string{`{"type":"message"}`}, drain(customer))
	assert.Equal(t, []string{`{"type":"message"}`}, drain(customerTab))
	assert.Equal(t, []string{`{"type":"message"}`}, drain(watcher))
	assert.Empty(t, drain(bystander))
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(NewWatchRegistry(), nil)
	c := newTestClient("c1", "customer", 1, 1)
	hub.Register(c)

	assert.Equal(t, 1, hub.SendToPrincipal("customer:1", []byte("a")))
	assert.Equal(t, 0, hub.SendToPrincipal("customer:1", []byte("b")))
	assert.Equal(t, []string{"a"}, drain(c))
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := NewHub(NewWatchRegistry(), nil)
	c := newTestClient("c1", "customer", 1, 1)
	hub.Register(c)
	require.True(t, hub.Connected("customer:1"))

	hub.Unregister(c)
	hub.Unregister(c)

	assert.False(t, hub.Connected("customer:1"))
	assert.False(t, c.Enqueue([]byte("late")))
	assert.Equal(t, 0, hub.SendToPrincipal("customer:1", []byte("late")))
}
