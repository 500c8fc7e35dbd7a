package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GatepassStatus string

const (
	GatepassPendingParent GatepassStatus = "pending_parent"
	GatepassPendingWarden GatepassStatus = "pending_warden"
	GatepassApproved      GatepassStatus = "approved"
	GatepassRejected      GatepassStatus = "rejected"
)

// ApprovalStatus is the state of one approver's decision.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

const (
	ParentRejectionReason = "Rejected by Parent"
	WardenRejectionReason = "Rejected by Warden"
)

var (
	ErrGatepassAlreadyProcessed = errors.New("request already processed")
	ErrNotPendingWarden         = errors.New("request is not pending warden approval")
)

type Gatepass struct {
	ID                   string         `gorm:"size:36;primaryKey" json:"id"`
	StudentID            string         `gorm:"size:36;index;not null" json:"studentId"`
	Student              *User          `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	FromDate             time.Time      `gorm:"not null" json:"fromDate"`
	ToDate               time.Time      `gorm:"not null" json:"toDate"`
	Reason               string         `gorm:"type:text;not null" json:"reason"`
	Status               GatepassStatus `gorm:"size:20;index;not null" json:"status"`
	ParentApprovalStatus ApprovalStatus `gorm:"size:20;not null" json:"parentApprovalStatus"`
	WardenApprovalStatus ApprovalStatus `gorm:"size:20;not null" json:"wardenApprovalStatus"`
	RejectionReason      string         `json:"rejectionReason,omitempty"`
	ApprovedBy           *string        `gorm:"size:36" json:"approvedBy,omitempty"`
	Approver             *User          `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

func NewGatepass(studentID string, from, to time.Time, reason string) *Gatepass {
	return &Gatepass{
		StudentID:            studentID,
		FromDate:             from,
		ToDate:               to,
		Reason:               reason,
		Status:               GatepassPendingParent,
		ParentApprovalStatus: ApprovalPending,
		WardenApprovalStatus: ApprovalPending,
	}
}

func (g *Gatepass) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.ParentApprovalStatus == "" {
		g.ParentApprovalStatus = ApprovalPending
	}
	if g.WardenApprovalStatus == "" {
		g.WardenApprovalStatus = ApprovalPending
	}
	g.Status = DeriveGatepassStatus(g.ParentApprovalStatus, g.WardenApprovalStatus)
	return nil
}

// DeriveGatepassStatus computes the overall state from the two approvals.
// A parent rejection is final regardless of the warden side.
func DeriveGatepassStatus(parent, warden ApprovalStatus) GatepassStatus {
	switch {
	case parent == ApprovalRejected:
		return GatepassRejected
	case parent != ApprovalApproved:
		return GatepassPendingParent
	case warden == ApprovalApproved:
		return GatepassApproved
	case warden == ApprovalRejected:
		return GatepassRejected
	default:
		return GatepassPendingWarden
	}
}

// ApplyParentDecision records the guardian's answer. Only valid while the
// request is waiting on the guardian.
func (g *Gatepass) ApplyParentDecision(approve bool) error {
	if g.Status != GatepassPendingParent || g.ParentApprovalStatus != ApprovalPending {
		return ErrGatepassAlreadyProcessed
	}
	if approve {
		g.ParentApprovalStatus = ApprovalApproved
	} else {
		g.ParentApprovalStatus = ApprovalRejected
		g.RejectionReason = ParentRejectionReason
	}
	g.Status = DeriveGatepassStatus(g.ParentApprovalStatus, g.WardenApprovalStatus)
	return nil
}

// ApplyWardenDecision records the warden's answer and stamps the approver.
func (g *Gatepass) ApplyWardenDecision(approve bool, wardenID, reason string) error {
	if g.Status != GatepassPendingWarden {
		return ErrNotPendingWarden
	}
	if approve {
		g.WardenApprovalStatus = ApprovalApproved
	} else {
		g.WardenApprovalStatus = ApprovalRejected
		if reason == "" {
			reason = WardenRejectionReason
		}
		g.RejectionReason = reason
	}
	g.ApprovedBy = &wardenID
	g.Status = DeriveGatepassStatus(g.ParentApprovalStatus, g.WardenApprovalStatus)
	return nil
}
