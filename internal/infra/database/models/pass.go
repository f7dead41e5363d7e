package models

import (
	"time"

	"gorm.io/gorm"
)

type Pass struct {
	ID              uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID          uint           `json:"userId" gorm:"index;not null"`
	VehicleType     string         `json:"vehicleType" gorm:"type:text;not null"`
	VehicleBrand    string         `json:"vehicleBrand" gorm:"type:text"`
	VehicleNumber   string         `json:"vehicleNumber" gorm:"type:text;not null"`
	PlateNorm       string         `json:"plateNorm" gorm:"type:text;index"`
	EntryDate       string         `json:"entryDate" gorm:"type:text;index"`
	Address         string         `json:"address" gorm:"type:text"`
	Comment         *string        `json:"comment" gorm:"type:text"`
	SecurityComment *string        `json:"securityComment" gorm:"type:text"`
	IsPermanent     *bool          `json:"isPermanent" gorm:"default:false"`
	Status          string         `json:"status" gorm:"type:text;not null;default:pending;index"`
	DeletedAt       gorm.DeletedAt `json:"deletedAt" gorm:"index"`
	CreatedAt       time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Pass) TableName() string {
	return "passes"
}
