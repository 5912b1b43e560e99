package models

import "time"

const (
	RequestTable       = "nest_gear_requests"
	RequestLineTable   = "nest_request_lines"
	StatusHistoryTable = "nest_request_status_history"
)

const (
	RequestStatusNew               = "New"
	RequestStatusPending           = "Pending"
	RequestStatusApproved          = "Approved"
	RequestStatusCheckedOut        = "CheckedOut"
	RequestStatusPartiallyReturned = "PartiallyReturned"
	RequestStatusCompleted         = "Completed"
	RequestStatusOverdue           = "Overdue"
	RequestStatusCancelled         = "Cancelled"
	RequestStatusRejected          = "Rejected"
)

type GearRequest struct {
	ID     string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string     `gorm:"type:uuid;index;not null" json:"userId"`
	Status string     `gorm:"size:24;not null;default:'New';index" json:"status"`
	Reason string     `gorm:"size:500" json:"reason,omitempty"`
	DueAt  *time.Time `gorm:"index" json:"dueAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Lines []RequestLine `gorm:"foreignKey:RequestID" json:"lines,omitempty"`
}

// RequestLine is immutable once the request is created. It is the source
// of truth for how much of each gear type was asked for.
type RequestLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RequestID string    `gorm:"type:uuid;index;not null" json:"requestId"`
	GearID    string    `gorm:"type:uuid;index;not null" json:"gearId"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// RequestStatusHistory is an append-only log of request status changes.
type RequestStatusHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RequestID string    `gorm:"type:uuid;index;not null" json:"requestId"`
	Status    string    `gorm:"size:24;not null" json:"status"`
	ChangedBy string    `gorm:"type:uuid" json:"changedBy"`
	Note      string    `gorm:"size:500" json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (GearRequest) TableName() string          { return RequestTable }
func (RequestLine) TableName() string          { return RequestLineTable }
func (RequestStatusHistory) TableName() string { return StatusHistoryTable }

// RequestStatusTerminal reports whether a request can no longer change state.
func RequestStatusTerminal(status string) bool {
	switch status {
	case RequestStatusCompleted, RequestStatusCancelled, RequestStatusRejected:
		return true
	}
	return false
}
