package models

import "time"

// User represents a staff account. Users are never hard-deleted; deactivation
// flips IsActive and revokes the user's refresh tokens.
type User struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	FullName       string    `json:"full_name" gorm:"not null"`
	HashedPassword string    `json:"-" gorm:"not null"`
	Role           string    `json:"role" gorm:"not null"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
