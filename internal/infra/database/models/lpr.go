package models

import (
	"time"

	"gorm.io/datatypes"
)

// LprEvent rows are only ever inserted.
type LprEvent struct {
	ID         uint64         `json:"id" gorm:"primaryKey;autoIncrement"`
	GateID     string         `json:"gateId" gorm:"type:text;not null;index"`
	EventType  string         `json:"eventType" gorm:"type:text;not null;index"`
	PlateRaw   *string        `json:"plateRaw" gorm:"type:text"`
	PlateNorm  *string        `json:"plateNorm" gorm:"type:text;index"`
	Confidence *float64       `json:"confidence"`
	PassID     *uint          `json:"passId" gorm:"index"`
	RequestID  string         `json:"requestId" gorm:"type:text;index"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"index"`
}

func (LprEvent) TableName() string {
	return "lpr_events"
}

type LprSettings struct {
	ID                      uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	LprToken                *string   `json:"lprToken" gorm:"type:text"`
	CooldownSeconds         *int      `json:"cooldownSeconds"`
	AllowedStatuses         *string   `json:"allowedStatuses" gorm:"type:text"`
	AllowRepeatAfterEntered *bool     `json:"allowRepeatAfterEntered"`
	Timezone                *string   `json:"timezone" gorm:"type:text"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func (LprSettings) TableName() string {
	return "lpr_settings"
}
