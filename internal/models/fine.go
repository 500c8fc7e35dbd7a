package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FineStatus string

const (
	FinePending FineStatus = "pending"
	FinePaid    FineStatus = "paid"
)

type Fine struct {
	ID         string     `gorm:"size:36;primaryKey" json:"id"`
	StudentID  string     `gorm:"size:36;index;not null" json:"studentId"`
	Student    *User      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Department Department `gorm:"size:20;index;not null" json:"department"`
	Amount     float64    `gorm:"not null" json:"amount"`
	Reason     string     `gorm:"not null" json:"reason"`
	Status     FineStatus `gorm:"size:20;index;not null" json:"status"`
	ImposedBy  string     `gorm:"size:36;not null" json:"imposedBy"`
	Imposer    *User      `gorm:"foreignKey:ImposedBy" json:"imposer,omitempty"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (f *Fine) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = FinePending
	}
	return nil
}

// PendingTotal sums the amounts of unpaid fines.
func PendingTotal(fines []Fine) float64 {
	var total float64
	for _, f := range fines {
		if f.Status == FinePending {
			total += f.Amount
		}
	}
	return total
}
