package domain

import "time"

type VehicleType string

const (
	VehicleLight VehicleType = "light"
	VehicleTruck VehicleType = "truck"
)

func (v VehicleType) Valid() bool {
	return v == VehicleLight || v == VehicleTruck
}

type PassStatus string

const (
	PassPending         PassStatus = "pending"
	PassActivated       PassStatus = "activated"
	PassRejected        PassStatus = "rejected"
	PassPersonalVehicle PassStatus = "personal_vehicle"
)

func (s PassStatus) Valid() bool {
	switch s {
	case PassPending, PassActivated, PassRejected, PassPersonalVehicle:
		return true
	}
	return false
}

// Pass is a resident's request to let a vehicle through the gate.
// PlateNorm always equals plate.Normalize(VehicleNumber).
type Pass struct {
	ID              uint        `json:"id"`
	UserID          uint        `json:"userId"`
	VehicleType     VehicleType `json:"vehicleType"`
	VehicleBrand    string      `json:"vehicleBrand,omitempty"`
	VehicleNumber   string      `json:"vehicleNumber"`
	PlateNorm       string      `json:"plateNorm"`
	EntryDate       string      `json:"entryDate,omitempty"`
	Address         string      `json:"address"`
	Comment         *string     `json:"comment,omitempty"`
	SecurityComment *string     `json:"securityComment,omitempty"`
	IsPermanent     *bool       `json:"isPermanent,omitempty"`
	Status          PassStatus  `json:"status"`
	DeletedAt       *time.Time  `json:"deletedAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Permanent treats an unset flag as a temporary pass.
func (p Pass) Permanent() bool {
	return p.IsPermanent != nil && *p.IsPermanent
}

// PassFilter narrows pass listings. Zero values mean no restriction.
type PassFilter struct {
	UserID      uint
	EntryDate   string
	VehicleType VehicleType
}
