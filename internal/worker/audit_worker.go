package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/events"
)

// StartAuditWorker logs credential and session lifecycle events.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	audit := logger.Named("audit")

	dispatcher.Subscribe(events.EventTokenRevoked, func(_ context.Context, e events.Event) error {
		fields := []zap.Field{zap.String("event_id", e.ID), zap.String("role", e.Actor.Role)}
		if e.Actor.UserID != nil {
			fields = append(fields, zap.Int64("user_id", *e.Actor.UserID))
		}
		if p, ok := e.Payload.(events.TokenRevokedPayload); ok {
			fields = append(fields, zap.String("scheme", p.Scheme), zap.Time("expires_at", p.ExpiresAt))
		}
		audit.Info("token revoked", fields...)
		return nil
	})

	for _, t := range []events.EventType{events.EventSessionConnected, events.EventSessionDisconnected} {
		dispatcher.Subscribe(t, func(_ context.Context, e events.Event) error {
			audit.Debug("websocket session",
				zap.String("event", string(e.Type)),
				zap.String("session_id", e.SessionID),
				zap.String("role", e.Actor.Role))
			return nil
		})
	}
}
