package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentType string

const (
	PaymentTypeFine            PaymentType = "fine"
	PaymentTypeHostelAllotment PaymentType = "hostel_allotment"
)

// ReferenceKind names the entity a payment settles.
type ReferenceKind string

const (
	RefFine            ReferenceKind = "Fine"
	RefHostelAllotment ReferenceKind = "HostelAllotment"
)

type PaymentRef struct {
	Kind ReferenceKind
	ID   string
}

func FineRef(id string) PaymentRef {
	return PaymentRef{Kind: RefFine, ID: id}
}

func AllotmentRef(id string) PaymentRef {
	return PaymentRef{Kind: RefHostelAllotment, ID: id}
}

const (
	PaymentStatusSuccess = "success"
	PaymentProviderMock  = "mock"
)

// Payment is append-only: rows are created and never updated.
type Payment struct {
	ID                string        `gorm:"size:36;primaryKey" json:"id"`
	StudentID         string        `gorm:"size:36;index;not null" json:"studentId"`
	Type              PaymentType   `gorm:"size:20;not null" json:"type"`
	ReferenceKind     ReferenceKind `gorm:"size:32;not null;index:idx_payment_ref" json:"referenceModel"`
	ReferenceID       string        `gorm:"size:36;not null;index:idx_payment_ref" json:"referenceId"`
	Amount            float64       `gorm:"not null" json:"amount"`
	Status            string        `gorm:"size:20;not null" json:"status"`
	Provider          string        `gorm:"size:20;not null" json:"provider"`
	ProviderPaymentID string        `gorm:"size:64" json:"providerPaymentId"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

func (p *Payment) Ref() PaymentRef {
	return PaymentRef{Kind: p.ReferenceKind, ID: p.ReferenceID}
}

// NewPayment builds a successful mock payment for ref. The payment type is
// derived from the reference kind so the two can never disagree.
func NewPayment(studentID string, ref PaymentRef, amount float64) (*Payment, error) {
	var typ PaymentType
	switch ref.Kind {
	case RefFine:
		typ = PaymentTypeFine
	case RefHostelAllotment:
		typ = PaymentTypeHostelAllotment
	default:
		return nil, fmt.Errorf("unknown payment reference kind %q", ref.Kind)
	}
	id := uuid.NewString()
	return &Payment{
		ID:                id,
		StudentID:         studentID,
		Type:              typ,
		ReferenceKind:     ref.Kind,
		ReferenceID:       ref.ID,
		Amount:            amount,
		Status:            PaymentStatusSuccess,
		Provider:          PaymentProviderMock,
		ProviderPaymentID: "mock_" + id,
	}, nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
