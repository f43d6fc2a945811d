package worker

import (
	"context"
	"fmt"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/events"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/ws"
)

// StartPresenceWorker keeps the watch registry in step with session events.
func StartPresenceWorker(dispatcher events.Dispatcher, registry *ws.WatchRegistry) {
	if dispatcher == nil || registry == nil {
		return
	}

	dispatcher.Subscribe(events.EventSessionConnected, func(_ context.Context, e events.Event) error {
		registry.RegisterSession(e.SessionID, e.Actor.Role, e.Actor.UserID)
		return nil
	})

	dispatcher.Subscribe(events.EventSessionDisconnected, func(_ context.Context, e events.Event) error {
		registry.UnregisterSession(e.SessionID)
		return nil
	})

	dispatcher.Subscribe(events.EventCustomerWatched, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.CustomerWatchedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		registry.Watch(e.Actor.UserID, &payload.CustomerID)
		return nil
	})
}
