package models

import "time"

// Comment is free-text content attached to exactly one task.
// Only the author may edit it; the author or an admin may delete it.
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"not null;index"`
	UserID    string    `json:"user_id" gorm:"not null"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Comment) TableName() string {
	return "comments"
}
