package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/totegamma/passgate/internal/domain"
)

// signal is the envelope relayed between instances over redis.
type signal struct {
	Event        string              `json:"event"`
	Notification domain.Notification `json:"notification"`
}

// SignalService relays notifications through redis pub/sub so that every
// instance behind the load balancer reaches its own monitoring clients.
type SignalService struct {
	rdb     *redis.Client
	channel string
}

func NewSignalService(redisClient *redis.Client, channel string) *SignalService {
	return &SignalService{
		rdb:     redisClient,
		channel: channel,
	}
}

func (s *SignalService) Publish(ctx context.Context, event string, notification domain.Notification) error {

	jsonstr, err := json.Marshal(signal{Event: event, Notification: notification})
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, s.channel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Forward subscribes to the relay channel and broadcasts every message to
// the local hub until ctx is done. It returns once the subscription is live.
func (s *SignalService) Forward(ctx context.Context, hub *Hub) error {
	sub := s.rdb.Subscribe(ctx, s.channel)

	_, err := sub.Receive(ctx)
	if err != nil {
		sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok || msg == nil {
					return
				}
				var sig signal
				err := json.Unmarshal([]byte(msg.Payload), &sig)
				if err != nil {
					slog.Warn(
						"bad relay payload",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
					continue
				}
				hub.Broadcast(sig.Event, sig.Notification)
			}
		}
	}()

	return nil
}
