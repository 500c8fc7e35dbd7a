package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/models"
)

type roomSeedFile struct {
	Rooms []roomSeed `yaml:"rooms"`
}

type roomSeed struct {
	RoomNumber string   `yaml:"room_number"`
	Capacity   int      `yaml:"capacity"`
	Floor      int      `yaml:"floor"`
	Block      string   `yaml:"block"`
	Amenities  []string `yaml:"amenities"`
}

// SeedRooms loads the hostel inventory from a YAML file. Rooms whose number
// already exists are left untouched, so the seed can run on every boot.
func SeedRooms(ctx context.Context, db *gorm.DB, path string, log logging.Logger) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read room seed: %w", err)
	}
	var file roomSeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parse room seed: %w", err)
	}

	created := 0
	for i, s := range file.Rooms {
		number := strings.TrimSpace(s.RoomNumber)
		if number == "" || s.Capacity < 1 || strings.TrimSpace(s.Block) == "" {
			log.Warn(ctx, "skipping invalid room seed entry", "index", i, "room_number", number)
			continue
		}
		var count int64
		if err := db.WithContext(ctx).Model(&models.HostelRoom{}).Where("room_number = ?", number).Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		if s.Amenities == nil {
			s.Amenities = []string{}
		}
		room := models.HostelRoom{
			RoomNumber: number,
			Capacity:   s.Capacity,
			Floor:      s.Floor,
			Block:      strings.TrimSpace(s.Block),
			Amenities:  s.Amenities,
		}
		if err := db.WithContext(ctx).Create(&room).Error; err != nil {
			return created, err
		}
		created++
	}
	log.Info(ctx, "seeded hostel rooms", "file", path, "created", created)
	return created, nil
}
