package models

import "time"

const CheckinTable = "nest_checkins"

const (
	CheckinStatusPending   = "PendingApproval"
	CheckinStatusCompleted = "Completed"
	CheckinStatusRejected  = "Rejected"
)

const (
	ConditionGood    = "Good"
	ConditionFair    = "Fair"
	ConditionDamaged = "Damaged"
)

// CheckinRecord is one physical return of a quantity of one gear type,
// optionally against a request. Rows are never deleted; an admin decision
// moves them from PendingApproval to a terminal status.
type CheckinRecord struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   *string    `gorm:"type:uuid;index" json:"requestId,omitempty"`
	UserID      string     `gorm:"type:uuid;index;not null" json:"userId"`
	GearID      string     `gorm:"type:uuid;index;not null" json:"gearId"`
	Quantity    int        `gorm:"not null;default:1" json:"quantity"`
	Status      string     `gorm:"size:20;not null;default:'PendingApproval';index" json:"status"`
	Condition   string     `gorm:"size:20" json:"condition,omitempty"`
	Notes       string     `gorm:"size:1000" json:"notes,omitempty"`
	CheckinDate *time.Time `gorm:"index" json:"checkinDate,omitempty"`
	ApprovedBy  *string    `gorm:"type:uuid" json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CheckinRecord) TableName() string { return CheckinTable }

// Unit returns the record quantity, defaulting to 1 when unset and
// clamping to at least 1.
func (c CheckinRecord) Unit() int {
	if c.Quantity < 1 {
		return 1
	}
	return c.Quantity
}

// ValidCheckinTransition allows only PendingApproval -> Completed/Rejected.
// Both targets are terminal.
func ValidCheckinTransition(from, to string) bool {
	if from != CheckinStatusPending {
		return false
	}
	return to == CheckinStatusCompleted || to == CheckinStatusRejected
}
