package models

import "time"

const GearTable = "nest_gears"

// Gear is a gear type tracked by quantity, not by serial number.
// QuantityAvailable is decremented on checkout and restored when a
// check-in of that gear is approved.
type Gear struct {
	ID                string `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string `gorm:"size:200;not null" json:"name"`
	Category          string `gorm:"size:100;index" json:"category,omitempty"`
	Status            string `gorm:"size:20;not null;default:'active'" json:"status"` // active/maintenance/retired
	QuantityOwned     int    `gorm:"not null;default:1" json:"quantityOwned"`
	QuantityAvailable int    `gorm:"not null;default:1" json:"quantityAvailable"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Gear) TableName() string { return GearTable }
