package domain

import "time"

// GateConfig is the resolved policy used by the decision path.
type GateConfig struct {
	CooldownSeconds         int      `json:"cooldownSeconds"`
	AllowedStatuses         []string `json:"allowedStatuses"`
	AllowRepeatAfterEntered bool     `json:"allowRepeatAfterEntered"`
	Timezone                string   `json:"timezone"`
}

// PermanentStatuses are the statuses a permanent pass may carry and still
// open the gate, on top of the configured allowed statuses.
var PermanentStatuses = []string{string(PassPersonalVehicle), string(PassActivated)}

// GateSettings is the persisted settings row. Nil fields fall back to
// environment defaults.
type GateSettings struct {
	ID                      uint      `json:"id"`
	LprToken                *string   `json:"lpr_token"`
	CooldownSeconds         *int      `json:"cooldown_seconds"`
	AllowedStatuses         *string   `json:"allowed_statuses"`
	AllowRepeatAfterEntered *bool     `json:"allow_repeat_after_entered"`
	Timezone                *string   `json:"timezone"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

type DecisionReason string

const (
	ReasonActivePassFound       DecisionReason = "ACTIVE_PASS_FOUND"
	ReasonNoActivePass          DecisionReason = "NO_ACTIVE_PASS"
	ReasonPlateInvalid          DecisionReason = "PLATE_INVALID"
	ReasonSystemTempUnavailable DecisionReason = "SYSTEM_TEMP_UNAVAILABLE"
)

// Decision is the answer given to a gate agent for one plate reading.
type Decision struct {
	Allowed         bool
	Reason          DecisionReason
	PlateNorm       string
	PassID          *uint
	CooldownSeconds int
	RequestID       string
}
