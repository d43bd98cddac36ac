package testutil

import (
	"time"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/database"
	"tripstars-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(database.AllModels...); err != nil {
		return nil, err
	}
	return db, nil
}

// SeedUser inserts an active user with the given role and a bcrypt-hashed
// password of "password123".
func SeedUser(db *gorm.DB, email, fullName, role string) (models.User, error) {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:             uuid.NewString(),
		Email:          email,
		FullName:       fullName,
		HashedPassword: hash,
		Role:           role,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := db.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}
