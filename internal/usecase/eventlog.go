package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/totegamma/passgate/internal/domain"
)

const asyncRecordTimeout = 5 * time.Second

// EventLog appends to the gate audit trail.
type EventLog struct {
	repo    EventRepository
	now     func() time.Time
	pending sync.WaitGroup
}

func NewEventLog(repo EventRepository) *EventLog {
	return &EventLog{repo: repo, now: time.Now}
}

// Record writes one event. A zero CreatedAt is stamped with the current time.
func (l *EventLog) Record(ctx context.Context, event domain.LprEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now()
	}
	if len(event.Payload) == 0 {
		event.Payload = json.RawMessage(`{}`)
	}
	return l.repo.Create(ctx, event)
}

// RecordAsync writes an event in the background. Failures are logged and
// never reach the caller.
func (l *EventLog) RecordAsync(ctx context.Context, event domain.LprEvent) {
	ctx = context.WithoutCancel(ctx)
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic while recording gate event", slog.Any("panic", r), slog.String("module", "eventlog"))
			}
		}()
		ctx, cancel := context.WithTimeout(ctx, asyncRecordTimeout)
		defer cancel()

		err := l.Record(ctx, event)
		if err != nil {
			slog.ErrorContext(
				ctx, "failed to record gate event",
				slog.String("error", err.Error()),
				slog.String("eventType", string(event.EventType)),
				slog.String("requestId", event.RequestID),
				slog.String("module", "eventlog"),
			)
		}
	}()
}

// Flush waits for background writes to finish.
func (l *EventLog) Flush() {
	l.pending.Wait()
}

func (l *EventLog) List(ctx context.Context, filter domain.EventFilter) ([]domain.LprEvent, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return l.repo.List(ctx, filter)
}

// payload marshals v, falling back to an empty object.
func payload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
