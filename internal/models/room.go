package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type HostelRoom struct {
	ID               string                      `gorm:"size:36;primaryKey" json:"id"`
	RoomNumber       string                      `gorm:"size:32;uniqueIndex;not null" json:"roomNumber"`
	Capacity         int                         `gorm:"not null" json:"capacity"`
	CurrentOccupancy int                         `gorm:"not null" json:"currentOccupancy"`
	IsAvailable      bool                        `gorm:"index" json:"isAvailable"`
	Floor            int                         `json:"floor"`
	Block            string                      `gorm:"size:32" json:"block"`
	Amenities        datatypes.JSONSlice[string] `json:"amenities"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

func (r *HostelRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps IsAvailable in step with occupancy on every persist.
func (r *HostelRoom) BeforeSave(tx *gorm.DB) (err error) {
	r.RefreshAvailability()
	return nil
}

func (r *HostelRoom) RefreshAvailability() {
	r.IsAvailable = r.CurrentOccupancy < r.Capacity
}

func (r *HostelRoom) HasSpace() bool {
	return r.CurrentOccupancy < r.Capacity
}
