package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/totegamma/passgate/internal/domain"
)

func newDecision(passes *mockPassRepo, events *mockEventRepo, settings *mockSettingsRepo) (*DecisionUsecase, *EventLog) {
	log := NewEventLog(events)
	config := NewGateConfigUsecase(settings, defaultGate(), "", 0)
	return NewDecisionUsecase(passes, log, config), log
}

func TestDecideInvalidPlateTouchesNothing(t *testing.T) {
	passes := newMockPassRepo()
	events := &mockEventRepo{}
	settings := &mockSettingsRepo{}
	uc, _ := newDecision(passes, events, settings)

	for _, raw := range []string{"", "!!!", " - . _ "} {
		decision := uc.Decide(context.Background(), CheckInput{Plate: raw, GateID: "main"})
		if decision.Allowed || decision.Reason != domain.ReasonPlateInvalid {
			t.Fatalf("unexpected decision for %q: %+v", raw, decision)
		}
		if decision.CooldownSeconds != 15 {
			t.Fatalf("expected default cooldown, got %d", decision.CooldownSeconds)
		}
	}

	if len(passes.queries) != 0 || len(events.events) != 0 || settings.reads != 0 {
		t.Fatalf("expected no store access, got %d queries %d events %d settings reads",
			len(passes.queries), len(events.events), settings.reads)
	}
}

func TestDecideAllow(t *testing.T) {
	passes := newMockPassRepo()
	passes.active = &domain.Pass{ID: 7, Status: domain.PassPending}
	events := &mockEventRepo{}
	uc, _ := newDecision(passes, events, &mockSettingsRepo{})

	decision := uc.Decide(context.Background(), CheckInput{Plate: "a123bc777", GateID: "main"})
	if !decision.Allowed || decision.Reason != domain.ReasonActivePassFound {
		t.Fatalf("expected allow, got %+v", decision)
	}
	if decision.PassID == nil || *decision.PassID != 7 {
		t.Fatalf("expected pass 7, got %v", decision.PassID)
	}
	if decision.PlateNorm != "А123ВС777" {
		t.Fatalf("unexpected plateNorm %q", decision.PlateNorm)
	}

	if len(events.events) != 2 {
		t.Fatalf("expected two events, got %d", len(events.events))
	}
	if events.events[0].EventType != domain.EventCheckSent || events.events[1].EventType != domain.EventDecisionAllow {
		t.Fatalf("unexpected event order %s, %s", events.events[0].EventType, events.events[1].EventType)
	}
	if events.events[0].RequestID != events.events[1].RequestID || events.events[0].RequestID != decision.RequestID {
		t.Fatalf("events do not share the decision request id")
	}
	if events.events[1].PassID == nil || *events.events[1].PassID != 7 {
		t.Fatalf("allow event missing pass id")
	}
}

func TestDecideDeny(t *testing.T) {
	passes := newMockPassRepo()
	events := &mockEventRepo{}
	uc, _ := newDecision(passes, events, &mockSettingsRepo{})

	decision := uc.Decide(context.Background(), CheckInput{Plate: "Х001ХХ01", GateID: "north"})
	if decision.Allowed || decision.Reason != domain.ReasonNoActivePass || decision.PassID != nil {
		t.Fatalf("expected deny, got %+v", decision)
	}
	if len(events.byType(domain.EventDecisionDeny)) != 1 {
		t.Fatalf("expected one deny event")
	}
	if events.events[0].GateID != "north" {
		t.Fatalf("unexpected gate id %q", events.events[0].GateID)
	}
}

func TestDecideQueryUsesConfig(t *testing.T) {
	passes := newMockPassRepo()
	settings := &mockSettingsRepo{settings: &domain.GateSettings{
		AllowedStatuses: ptr("pending,activated"),
		Timezone:        ptr("Asia/Tokyo"),
		CooldownSeconds: ptr(30),
	}}
	uc, _ := newDecision(passes, &mockEventRepo{}, settings)
	uc.now = func() time.Time {
		return time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC)
	}

	decision := uc.Decide(context.Background(), CheckInput{Plate: "А123ВС777", GateID: "main"})
	if decision.CooldownSeconds != 30 {
		t.Fatalf("expected configured cooldown, got %d", decision.CooldownSeconds)
	}

	query := passes.queries[0]
	if query.Today != "2026-03-02" {
		t.Fatalf("expected today in Asia/Tokyo to be 2026-03-02, got %s", query.Today)
	}
	if fmt.Sprint(query.Allowed) != "[pending activated]" {
		t.Fatalf("unexpected allowed %v", query.Allowed)
	}
	if fmt.Sprint(query.PermanentAllowed) != "[pending activated personal_vehicle]" {
		t.Fatalf("unexpected permanent allowed %v", query.PermanentAllowed)
	}
}

func TestDecideUnknownTimezoneFallsBackToUTC(t *testing.T) {
	passes := newMockPassRepo()
	settings := &mockSettingsRepo{settings: &domain.GateSettings{Timezone: ptr("Nowhere/Land")}}
	uc, _ := newDecision(passes, &mockEventRepo{}, settings)
	uc.now = func() time.Time {
		return time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	}

	uc.Decide(context.Background(), CheckInput{Plate: "А123ВС777", GateID: "main"})
	if passes.queries[0].Today != "2026-03-01" {
		t.Fatalf("expected UTC date, got %s", passes.queries[0].Today)
	}
}

func TestDecideStoreErrorDegrades(t *testing.T) {
	passes := newMockPassRepo()
	passes.findErr = errors.New("connection reset")
	events := &mockEventRepo{}
	uc, log := newDecision(passes, events, &mockSettingsRepo{})

	decision := uc.Decide(context.Background(), CheckInput{Plate: "А123ВС777", GateID: "main"})
	log.Flush()

	if decision.Allowed || decision.Reason != domain.ReasonSystemTempUnavailable {
		t.Fatalf("expected temp unavailable, got %+v", decision)
	}
	if decision.CooldownSeconds != 15 {
		t.Fatalf("cooldown must still be echoed, got %d", decision.CooldownSeconds)
	}
	unavailable := events.byType(domain.EventSystemTempUnavailable)
	if len(unavailable) != 1 || unavailable[0].RequestID != decision.RequestID {
		t.Fatalf("expected one SYSTEM_TEMP_UNAVAILABLE event for the request, got %+v", unavailable)
	}
}

func TestDecidePanicDegrades(t *testing.T) {
	passes := newMockPassRepo()
	passes.findPanic = true
	events := &mockEventRepo{}
	uc, log := newDecision(passes, events, &mockSettingsRepo{})

	decision := uc.Decide(context.Background(), CheckInput{Plate: "А123ВС777", GateID: "main"})
	log.Flush()

	if decision.Reason != domain.ReasonSystemTempUnavailable {
		t.Fatalf("expected temp unavailable after panic, got %+v", decision)
	}
	if len(events.byType(domain.EventSystemTempUnavailable)) != 1 {
		t.Fatalf("expected an unavailable event after panic")
	}
}

func TestDecideEventLogDownStillAnswers(t *testing.T) {
	events := &mockEventRepo{err: errors.New("disk full")}
	uc, log := newDecision(newMockPassRepo(), events, &mockSettingsRepo{})

	decision := uc.Decide(context.Background(), CheckInput{Plate: "А123ВС777", GateID: "main"})
	log.Flush()

	if decision.Reason != domain.ReasonSystemTempUnavailable {
		t.Fatalf("expected temp unavailable, got %+v", decision)
	}
}

func TestDecideConcurrentChecksLogOnePairEach(t *testing.T) {
	passes := newMockPassRepo()
	passes.active = &domain.Pass{ID: 1, Status: domain.PassPending}
	events := &mockEventRepo{}
	uc, _ := newDecision(passes, events, &mockSettingsRepo{})

	const n = 50
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			decision := uc.Decide(context.Background(), CheckInput{Plate: "А123ВС777", GateID: "main"})
			if !decision.Allowed {
				return fmt.Errorf("unexpected decision %+v", decision)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	checks := events.byType(domain.EventCheckSent)
	allows := events.byType(domain.EventDecisionAllow)
	if len(checks) != n || len(allows) != n {
		t.Fatalf("expected %d CHECK_SENT and %d DECISION_ALLOW, got %d and %d", n, n, len(checks), len(allows))
	}

	terminal := map[string]int{}
	for _, e := range allows {
		terminal[e.RequestID]++
	}
	for _, e := range checks {
		if terminal[e.RequestID] != 1 {
			t.Fatalf("request %s has %d terminal events", e.RequestID, terminal[e.RequestID])
		}
	}
}
