package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventPlateDetected         EventType = "PLATE_DETECTED"
	EventCheckSent             EventType = "CHECK_SENT"
	EventDecisionAllow         EventType = "DECISION_ALLOW"
	EventDecisionDeny          EventType = "DECISION_DENY"
	EventGateOpened            EventType = "GATE_OPENED"
	EventOpenFailed            EventType = "OPEN_FAILED"
	EventSystemUnavailable     EventType = "SYSTEM_UNAVAILABLE"
	EventSystemTempUnavailable EventType = "SYSTEM_TEMP_UNAVAILABLE"
	EventCarEntered            EventType = "CAR_ENTERED"
)

func (t EventType) Valid() bool {
	switch t {
	case EventPlateDetected, EventCheckSent, EventDecisionAllow, EventDecisionDeny,
		EventGateOpened, EventOpenFailed, EventSystemUnavailable,
		EventSystemTempUnavailable, EventCarEntered:
		return true
	}
	return false
}

// AdvancesLifecycle reports whether the event means the vehicle physically
// passed the gate.
func (t EventType) AdvancesLifecycle() bool {
	return t == EventGateOpened || t == EventCarEntered
}

// LprEvent is one row of the append-only gate audit trail.
type LprEvent struct {
	ID         uint64          `json:"id"`
	GateID     string          `json:"gateId"`
	EventType  EventType       `json:"eventType"`
	PlateRaw   *string         `json:"plateRaw,omitempty"`
	PlateNorm  *string         `json:"plateNorm,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	PassID     *uint           `json:"passId,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// EventFilter narrows audit listings.
type EventFilter struct {
	RequestID string
	GateID    string
	PassID    *uint
	Limit     int
}
