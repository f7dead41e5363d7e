package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/plate"
)

// ReportInput is a physical gate event reported by an agent.
type ReportInput struct {
	GateID     string
	EventType  domain.EventType
	EventAt    *time.Time
	Plate      *string
	PassID     *uint
	RequestID  string
	Confidence *float64
	Meta       map[string]any
}

type ReportResult struct {
	Activated bool
}

type EventUsecase struct {
	events   *EventLog
	passes   PassRepository
	config   *GateConfigUsecase
	notifier Notifier
}

func NewEventUsecase(
	events *EventLog,
	passes PassRepository,
	config *GateConfigUsecase,
	notifier Notifier,
) *EventUsecase {
	return &EventUsecase{
		events:   events,
		passes:   passes,
		config:   config,
		notifier: notifier,
	}
}

// Report stores the event and, for entry events carrying a pass id,
// advances the pass to activated. Only a failed event write is returned as
// an error.
func (uc *EventUsecase) Report(ctx context.Context, input ReportInput) (ReportResult, error) {
	ctx, span := tracer.Start(ctx, "Event.Usecase.Report")
	defer span.End()

	span.SetAttributes(
		attribute.String("gateId", input.GateID),
		attribute.String("eventType", string(input.EventType)),
	)

	var plateNorm *string
	if input.Plate != nil && *input.Plate != "" {
		norm := plate.Normalize(*input.Plate)
		plateNorm = &norm
	}

	if input.RequestID == "" {
		input.RequestID = uuid.NewString()
	}

	meta := input.Meta
	if meta == nil {
		meta = map[string]any{}
	}

	event := domain.LprEvent{
		GateID:     input.GateID,
		EventType:  input.EventType,
		PlateRaw:   input.Plate,
		PlateNorm:  plateNorm,
		Confidence: input.Confidence,
		PassID:     input.PassID,
		RequestID:  input.RequestID,
		Payload: payload(map[string]any{
			"gateId":     input.GateID,
			"eventType":  input.EventType,
			"eventAt":    input.EventAt,
			"plate":      input.Plate,
			"passId":     input.PassID,
			"requestId":  input.RequestID,
			"confidence": input.Confidence,
			"meta":       meta,
		}),
	}
	if input.EventAt != nil {
		event.CreatedAt = *input.EventAt
	}

	err := uc.events.Record(ctx, event)
	if err != nil {
		span.RecordError(pkgerrors.Wrap(err, "record gate event"))
		return ReportResult{}, pkgerrors.Wrap(err, "record gate event")
	}

	if !input.EventType.AdvancesLifecycle() || input.PassID == nil {
		return ReportResult{}, nil
	}

	activated, err := uc.advance(ctx, *input.PassID, input.EventType)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "failed to advance pass lifecycle",
			slog.String("error", err.Error()),
			slog.Int("passId", int(*input.PassID)),
			slog.String("module", "lifecycle"),
		)
		return ReportResult{}, nil
	}

	return ReportResult{Activated: activated}, nil
}

// advance is a read-then-write transition to activated. It is applied when
// repeat entries are allowed or the pass is still pending.
func (uc *EventUsecase) advance(ctx context.Context, passID uint, eventType domain.EventType) (bool, error) {
	cfg := uc.config.Get(ctx)

	pass, err := uc.passes.Get(ctx, passID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(err, "load pass")
	}

	if !cfg.AllowRepeatAfterEntered && pass.Status != domain.PassPending {
		return false, nil
	}

	err = uc.passes.SetStatus(ctx, passID, domain.PassActivated)
	if err != nil {
		return false, pkgerrors.Wrap(err, "activate pass")
	}

	slog.InfoContext(
		ctx, "pass activated",
		slog.Int("passId", int(passID)),
		slog.String("eventType", string(eventType)),
		slog.String("module", "lifecycle"),
	)

	uc.notifier.Notify(ctx, domain.NotifyPassUpdated, domain.Notification{
		Message: "Pass activated after " + string(eventType),
		PassID:  passID,
	})

	return true, nil
}
