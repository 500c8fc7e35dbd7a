package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	ComplaintPending  ComplaintStatus = "pending"
	ComplaintResolved ComplaintStatus = "resolved"
	ComplaintRejected ComplaintStatus = "rejected"
)

func IsValidComplaintStatus(s string) bool {
	switch ComplaintStatus(s) {
	case ComplaintPending, ComplaintResolved, ComplaintRejected:
		return true
	}
	return false
}

type Complaint struct {
	ID            string          `gorm:"size:36;primaryKey" json:"id"`
	StudentID     string          `gorm:"size:36;index;not null" json:"studentId"`
	Student       *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Department    Department      `gorm:"size:20;index;not null" json:"department"`
	Subject       string          `gorm:"not null" json:"subject"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	Status        ComplaintStatus `gorm:"size:20;index;not null" json:"status"`
	AdminResponse string          `gorm:"type:text" json:"adminResponse,omitempty"`
	ResolvedBy    *string         `gorm:"size:36" json:"resolvedBy,omitempty"`
	Resolver      *User           `gorm:"foreignKey:ResolvedBy" json:"resolver,omitempty"`
	ResolvedAt    *time.Time      `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = ComplaintPending
	}
	return nil
}

// SetStatus applies a staff decision. Moving to resolved or rejected stamps
// the resolver; moving back to pending clears it.
func (c *Complaint) SetStatus(status ComplaintStatus, staffID string, now time.Time) {
	c.Status = status
	if status == ComplaintPending {
		c.ResolvedBy = nil
		c.ResolvedAt = nil
		return
	}
	c.ResolvedBy = &staffID
	c.ResolvedAt = &now
}
