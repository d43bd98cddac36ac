package database

import (
	"log"
	"time"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/models"
	"tripstars-api/internal/roles"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedDefaults inserts a default admin and a demo team member when the users
// table is empty, so a fresh install is immediately usable.
func SeedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []struct {
		email, name, password, role string
	}{
		{"admin@tripstars.com", "Admin User", "admin123", roles.Admin},
		{"demo@tripstars.com", "Demo User", "demo123", roles.TeamMember},
	}

	for _, d := range defaults {
		hash, err := auth.HashPassword(d.password)
		if err != nil {
			return err
		}
		user := models.User{
			ID:             uuid.NewString(),
			Email:          d.email,
			FullName:       d.name,
			HashedPassword: hash,
			Role:           d.role,
			IsActive:       true,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		log.Printf("Seeded %s user: %s", d.role, d.email)
	}
	return nil
}
