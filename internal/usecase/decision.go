package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/plate"
)

var tracer = otel.Tracer("usecase")

// CheckInput is one plate reading reported by a gate agent.
type CheckInput struct {
	Plate      string
	GateID     string
	CapturedAt *time.Time
	Confidence *float64
}

type DecisionUsecase struct {
	passes PassRepository
	events *EventLog
	config *GateConfigUsecase
	now    func() time.Time
}

func NewDecisionUsecase(
	passes PassRepository,
	events *EventLog,
	config *GateConfigUsecase,
) *DecisionUsecase {
	return &DecisionUsecase{
		passes: passes,
		events: events,
		config: config,
		now:    time.Now,
	}
}

// Decide answers whether the gate should open for a plate. It always
// produces a decision; infrastructure failures become
// SYSTEM_TEMP_UNAVAILABLE.
func (uc *DecisionUsecase) Decide(ctx context.Context, input CheckInput) (decision domain.Decision) {
	ctx, span := tracer.Start(ctx, "Decision.Usecase.Decide")
	defer span.End()

	plateNorm := plate.Normalize(input.Plate)
	span.SetAttributes(
		attribute.String("gateId", input.GateID),
		attribute.String("plateNorm", plateNorm),
	)

	if plateNorm == "" {
		return domain.Decision{
			Allowed:         false,
			Reason:          domain.ReasonPlateInvalid,
			CooldownSeconds: uc.config.Defaults().CooldownSeconds,
		}
	}

	requestID := uuid.NewString()
	cooldown := uc.config.Defaults().CooldownSeconds

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during decision: %v", r)
			span.RecordError(err)
			decision = uc.unavailable(ctx, input, plateNorm, requestID, cooldown, err)
		}
	}()

	cfg := uc.config.Get(ctx)
	cooldown = cfg.CooldownSeconds
	today := uc.today(ctx, cfg.Timezone)

	err := uc.events.Record(ctx, domain.LprEvent{
		GateID:     input.GateID,
		EventType:  domain.EventCheckSent,
		PlateRaw:   &input.Plate,
		PlateNorm:  &plateNorm,
		Confidence: input.Confidence,
		RequestID:  requestID,
		Payload: payload(map[string]any{
			"plate":      input.Plate,
			"gateId":     input.GateID,
			"capturedAt": input.CapturedAt,
			"confidence": input.Confidence,
			"requestId":  requestID,
			"today":      today,
		}),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "record CHECK_SENT"))
		return uc.unavailable(ctx, input, plateNorm, requestID, cooldown, err)
	}

	pass, err := uc.passes.FindActive(ctx, ActiveQuery{
		PlateNorm:        plateNorm,
		Today:            today,
		Allowed:          cfg.AllowedStatuses,
		PermanentAllowed: permanentAllowed(cfg.AllowedStatuses),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "find active pass"))
		return uc.unavailable(ctx, input, plateNorm, requestID, cooldown, err)
	}

	if pass == nil {
		err = uc.events.Record(ctx, domain.LprEvent{
			GateID:     input.GateID,
			EventType:  domain.EventDecisionDeny,
			PlateRaw:   &input.Plate,
			PlateNorm:  &plateNorm,
			Confidence: input.Confidence,
			RequestID:  requestID,
			Payload:    payload(map[string]any{"reason": domain.ReasonNoActivePass}),
		})
		if err != nil {
			span.RecordError(errors.Wrap(err, "record DECISION_DENY"))
			return uc.unavailable(ctx, input, plateNorm, requestID, cooldown, err)
		}
		return domain.Decision{
			Allowed:         false,
			Reason:          domain.ReasonNoActivePass,
			PlateNorm:       plateNorm,
			CooldownSeconds: cooldown,
			RequestID:       requestID,
		}
	}

	passID := pass.ID
	err = uc.events.Record(ctx, domain.LprEvent{
		GateID:     input.GateID,
		EventType:  domain.EventDecisionAllow,
		PlateRaw:   &input.Plate,
		PlateNorm:  &plateNorm,
		Confidence: input.Confidence,
		PassID:     &passID,
		RequestID:  requestID,
		Payload: payload(map[string]any{
			"reason":    domain.ReasonActivePassFound,
			"passId":    passID,
			"permanent": pass.Permanent(),
		}),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "record DECISION_ALLOW"))
		return uc.unavailable(ctx, input, plateNorm, requestID, cooldown, err)
	}

	span.SetAttributes(attribute.Int("passId", int(passID)))
	return domain.Decision{
		Allowed:         true,
		Reason:          domain.ReasonActivePassFound,
		PlateNorm:       plateNorm,
		PassID:          &passID,
		CooldownSeconds: cooldown,
		RequestID:       requestID,
	}
}

func (uc *DecisionUsecase) unavailable(
	ctx context.Context,
	input CheckInput,
	plateNorm, requestID string,
	cooldown int,
	cause error,
) domain.Decision {
	slog.ErrorContext(
		ctx, "gate decision failed",
		slog.String("error", cause.Error()),
		slog.String("gateId", input.GateID),
		slog.String("requestId", requestID),
		slog.String("module", "decision"),
	)

	uc.events.RecordAsync(ctx, domain.LprEvent{
		GateID:    input.GateID,
		EventType: domain.EventSystemTempUnavailable,
		PlateRaw:  &input.Plate,
		PlateNorm: &plateNorm,
		RequestID: requestID,
		Payload:   payload(map[string]any{"error": cause.Error()}),
	})

	return domain.Decision{
		Allowed:         false,
		Reason:          domain.ReasonSystemTempUnavailable,
		PlateNorm:       plateNorm,
		CooldownSeconds: cooldown,
		RequestID:       requestID,
	}
}

// today is the server's current calendar date in the gate's time zone.
func (uc *DecisionUsecase) today(ctx context.Context, timezone string) string {
	loc := location(ctx, timezone)
	return now.With(uc.now().In(loc)).BeginningOfDay().Format(time.DateOnly)
}

func permanentAllowed(allowed []string) []string {
	out := make([]string, 0, len(allowed)+len(domain.PermanentStatuses))
	seen := make(map[string]bool)
	for _, list := range [][]string{allowed, domain.PermanentStatuses} {
		for _, status := range list {
			if !seen[status] {
				seen[status] = true
				out = append(out, status)
			}
		}
	}
	return out
}
