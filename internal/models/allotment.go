package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AllotmentStatus string

const (
	AllotmentPending  AllotmentStatus = "pending"
	AllotmentApproved AllotmentStatus = "approved"
	AllotmentRejected AllotmentStatus = "rejected"
)

type PaymentState string

const (
	PaymentUnpaid PaymentState = "unpaid"
	PaymentPaid   PaymentState = "paid"
)

// HostelAllotment is a student's single application for a room.
type HostelAllotment struct {
	ID              string          `gorm:"size:36;primaryKey" json:"id"`
	StudentID       string          `gorm:"size:36;uniqueIndex;not null" json:"studentId"`
	Student         *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	RoomID          string          `gorm:"size:36;index;not null" json:"roomId"`
	Room            *HostelRoom     `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Status          AllotmentStatus `gorm:"size:20;index;not null" json:"status"`
	AppliedAt       time.Time       `json:"appliedAt"`
	ApprovedBy      *string         `gorm:"size:36" json:"approvedBy,omitempty"`
	Approver        *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	PaymentStatus   PaymentState    `gorm:"size:20;not null" json:"paymentStatus"`
	PaymentID       *string         `gorm:"size:36" json:"paymentId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (a *HostelAllotment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AllotmentPending
	}
	if a.PaymentStatus == "" {
		a.PaymentStatus = PaymentUnpaid
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now()
	}
	return nil
}
