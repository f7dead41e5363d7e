package passgate

import (
	"time"
)

// Wire types shared by the HTTP handlers and the gate client.

const (
	DefaultGateID = "main"
)

// CheckRequest asks whether the gate may open for a captured plate.
type CheckRequest struct {
	Plate      string     `json:"plate"`
	GateID     string     `json:"gateId,omitempty"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
}

// CheckResponse is always well formed, even when the server failed.
type CheckResponse struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason"`
	PlateNorm       string `json:"plateNorm"`
	PassID          *uint  `json:"passId,omitempty"`
	CooldownSeconds int    `json:"cooldownSeconds"`
	RequestID       string `json:"requestId,omitempty"`
}

// EventRequest reports a physical gate event.
type EventRequest struct {
	GateID     string         `json:"gateId"`
	EventType  string         `json:"eventType"`
	EventAt    *time.Time     `json:"eventAt,omitempty"`
	Plate      *string        `json:"plate,omitempty"`
	PassID     *uint          `json:"passId,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

type EventAck struct {
	OK        bool `json:"ok"`
	Activated bool `json:"activated"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the 400 body for rejected requests.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// PassRequest creates or partially updates a pass. Nil fields are left
// unchanged on update.
type PassRequest struct {
	VehicleType     *string `json:"vehicleType,omitempty"`
	VehicleBrand    *string `json:"vehicleBrand,omitempty"`
	VehicleNumber   *string `json:"vehicleNumber,omitempty"`
	EntryDate       *string `json:"entryDate,omitempty"`
	Address         *string `json:"address,omitempty"`
	Comment         *string `json:"comment,omitempty"`
	SecurityComment *string `json:"securityComment,omitempty"`
	IsPermanent     *bool   `json:"isPermanent,omitempty"`
	Status          *string `json:"status,omitempty"`
	UserID          *uint   `json:"userId,omitempty"`
}

// SettingsRequest updates the gate settings. Nil fields are left unchanged.
type SettingsRequest struct {
	CooldownSeconds         *int    `json:"cooldown_seconds,omitempty"`
	AllowedStatuses         *string `json:"allowed_statuses,omitempty"`
	AllowRepeatAfterEntered *bool   `json:"allow_repeat_after_entered,omitempty"`
	Timezone                *string `json:"timezone,omitempty"`
	GenerateNewToken        bool    `json:"generate_new_token,omitempty"`
}

type SettingsResponse struct {
	Message                 string `json:"message,omitempty"`
	LprToken                string `json:"lpr_token"`
	CooldownSeconds         int    `json:"cooldown_seconds"`
	AllowedStatuses         string `json:"allowed_statuses"`
	AllowRepeatAfterEntered bool   `json:"allow_repeat_after_entered"`
	Timezone                string `json:"timezone"`
}
