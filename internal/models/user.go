package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            string      `gorm:"size:36;primaryKey" json:"id"`
	Name          string      `gorm:"not null" json:"name"`
	Email         string      `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password      string      `gorm:"not null" json:"-"`
	Role          Role        `gorm:"size:20;index;not null" json:"role"`
	StudentID     *string     `gorm:"size:64;uniqueIndex" json:"studentId,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Address       string      `json:"address,omitempty"`
	ParentName    string      `json:"parentName,omitempty"`
	ParentEmail   string      `json:"parentEmail,omitempty"`
	ParentPhone   string      `json:"parentPhone,omitempty"`
	GuardianName  string      `json:"guardianName,omitempty"`
	GuardianEmail string      `json:"guardianEmail,omitempty"`
	GuardianPhone string      `json:"guardianPhone,omitempty"`
	IsVerified    bool        `json:"isVerified,omitempty"`
	OTP           string      `gorm:"size:64" json:"-"`
	OTPExpires    *time.Time  `json:"-"`
	HostelRoomID  *string     `gorm:"size:36;index" json:"hostelRoomId,omitempty"`
	HostelRoom    *HostelRoom `gorm:"foreignKey:HostelRoomID" json:"hostelRoom,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// OTPValid reports whether digest matches the stored code digest and the code
// has not expired.
func (u *User) OTPValid(digest string, now time.Time) bool {
	if u.OTP == "" || u.OTPExpires == nil {
		return false
	}
	if digest != u.OTP {
		return false
	}
	return now.Before(*u.OTPExpires)
}

// GuardianContactEmail is where gatepass approval requests go.
func (u *User) GuardianContactEmail() string {
	if e := strings.TrimSpace(u.ParentEmail); e != "" {
		return e
	}
	return strings.TrimSpace(u.GuardianEmail)
}

// Public is the trimmed form embedded in other records' responses.
func (u *User) Public() *User {
	if u == nil || u.ID == "" {
		return nil
	}
	return &User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, StudentID: u.StudentID}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
