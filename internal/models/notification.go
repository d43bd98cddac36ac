package models

import "time"

// Notification types emitted by system actions.
const (
	NotifTaskAssigned  = "task_assigned"
	NotifTaskOverdue   = "task_overdue"
	NotifStatusChanged = "status_changed"
	NotifCommentAdded  = "comment_added"
	NotifFileUploaded  = "file_uploaded"
)

// Notification is a one-way fact addressed to one user. Only the read flag
// is ever mutated by direct user action.
type Notification struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"user_id" gorm:"not null;index"`
	Type          string    `json:"type" gorm:"not null"`
	RelatedTaskID string    `json:"related_task_id,omitempty" gorm:"index"`
	Message       string    `json:"message" gorm:"not null"`
	IsRead        bool      `json:"is_read" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
