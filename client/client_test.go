package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/totegamma/passgate"
)

func newGateServer(t *testing.T, checks *int32, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-LPR-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid LPR token"}`))
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		switch r.URL.Path {
		case "/api/lpr/check":
			atomic.AddInt32(checks, 1)
			var req passgate.CheckRequest
			json.NewDecoder(r.Body).Decode(&req)
			passID := uint(12)
			json.NewEncoder(w).Encode(passgate.CheckResponse{
				Allowed:         true,
				Reason:          "ACTIVE_PASS_FOUND",
				PlateNorm:       "А123ВС777",
				PassID:          &passID,
				CooldownSeconds: 15,
				RequestID:       "5f0c6f57-8d4b-4c39-9a55-1f1d8f0a4b11",
			})
		case "/api/lpr/event":
			var req passgate.EventRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(passgate.EventAck{OK: true, Activated: req.EventType == "CAR_ENTERED"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestCheck(t *testing.T) {
	var checks int32
	server := newGateServer(t, &checks, http.StatusOK)
	defer server.Close()

	c := New(server.URL, "secret", Options{})
	resp, err := c.Check(context.Background(), passgate.CheckRequest{Plate: "a123bc777"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !resp.Allowed || resp.PassID == nil || *resp.PassID != 12 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCheckReusesAnswerWithinCooldown(t *testing.T) {
	var checks int32
	server := newGateServer(t, &checks, http.StatusOK)
	defer server.Close()

	c := New(server.URL, "secret", Options{})
	ctx := context.Background()

	for _, p := range []string{"a123bc777", "A 123 BC 777", "А123ВС777"} {
		if _, err := c.Check(ctx, passgate.CheckRequest{Plate: p, GateID: "main"}); err != nil {
			t.Fatalf("Check failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(&checks); got != 1 {
		t.Fatalf("expected 1 server call, got %d", got)
	}

	if _, err := c.Check(ctx, passgate.CheckRequest{Plate: "a123bc777", GateID: "north"}); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if got := atomic.LoadInt32(&checks); got != 2 {
		t.Fatalf("expected another call for a different gate, got %d", got)
	}

	c.Forget("main", "a123bc777")
	if _, err := c.Check(ctx, passgate.CheckRequest{Plate: "a123bc777"}); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if got := atomic.LoadInt32(&checks); got != 3 {
		t.Fatalf("expected a fresh call after Forget, got %d", got)
	}
}

func TestCheckUnavailable(t *testing.T) {
	var checks int32
	server := newGateServer(t, &checks, http.StatusBadGateway)
	defer server.Close()

	c := New(server.URL, "secret", Options{})
	resp, err := c.Check(context.Background(), passgate.CheckRequest{Plate: "a123bc777"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if resp.Allowed || resp.Reason != ReasonUnavailable {
		t.Fatalf("expected closed gate, got %+v", resp)
	}
	if resp.PlateNorm != "А123ВС777" {
		t.Fatalf("expected normalized plate, got %q", resp.PlateNorm)
	}
}

func TestBadToken(t *testing.T) {
	var checks int32
	server := newGateServer(t, &checks, http.StatusOK)
	defer server.Close()

	c := New(server.URL, "wrong", Options{})
	if _, err := c.ReportEvent(context.Background(), passgate.EventRequest{GateID: "main", EventType: "GATE_OPENED"}); err == nil {
		t.Fatalf("expected error for bad token")
	}
}

func TestReportEvent(t *testing.T) {
	var checks int32
	server := newGateServer(t, &checks, http.StatusOK)
	defer server.Close()

	c := New(server.URL+"/", "secret", Options{UserAgent: "test"})
	passID := uint(12)
	ack, err := c.ReportEvent(context.Background(), passgate.EventRequest{
		GateID:    "main",
		EventType: "CAR_ENTERED",
		PassID:    &passID,
	})
	if err != nil {
		t.Fatalf("ReportEvent failed: %v", err)
	}
	if !ack.OK || !ack.Activated {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}
