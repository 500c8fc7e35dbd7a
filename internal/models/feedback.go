package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Feedback struct {
	ID         string     `gorm:"size:36;primaryKey" json:"id"`
	StudentID  string     `gorm:"size:36;index;not null" json:"studentId"`
	Student    *User      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Department Department `gorm:"size:20;index;not null" json:"department"`
	Subject    string     `gorm:"not null" json:"subject"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Feedback) TableName() string {
	return "feedback"
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
