package service

import (
	"context"
	"log/slog"

	"github.com/totegamma/passgate/internal/domain"
)

// NotificationService delivers pass change hints. With a relay configured
// the message goes through redis and comes back to every instance's hub;
// otherwise, or when the relay is down, it goes straight to the local hub.
type NotificationService struct {
	hub    *Hub
	signal *SignalService
}

func NewNotificationService(hub *Hub, signal *SignalService) *NotificationService {
	return &NotificationService{
		hub:    hub,
		signal: signal,
	}
}

func (s *NotificationService) Notify(ctx context.Context, event string, notification domain.Notification) {
	if s.signal != nil {
		err := s.signal.Publish(ctx, event, notification)
		if err == nil {
			return
		}
		slog.WarnContext(
			ctx, "relay publish failed, broadcasting locally",
			slog.String("event", event),
			slog.String("error", err.Error()),
			slog.String("module", "notification"),
		)
	}
	s.hub.Broadcast(event, notification)
}
