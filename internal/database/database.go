package database

import (
	"log"
	"tripstars-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// AllModels is the full migration set, shared with the test helper.
var AllModels = []any{
	&models.User{},
	&models.Task{},
	&models.Comment{},
	&models.Attachment{},
	&models.ChatAttachment{},
	&models.Conversation{},
	&models.Message{},
	&models.Notification{},
	&models.AuditLog{},
	&models.RefreshToken{},
}

// InitDB initializes the database connection and runs migrations
func InitDB(path string) {
	var err error

	// Using glebarez/sqlite which is a pure Go implementation (no CGO required)
	DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := DB.AutoMigrate(AllModels...); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	log.Println("Database connected and migrated")
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
