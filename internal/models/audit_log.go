package models

import "time"

// Audit action types.
const (
	AuditTaskCreated    = "task_created"
	AuditTaskReassigned = "task_reassigned"
	AuditTaskCancelled  = "task_cancelled"
	AuditTaskBulk       = "task_bulk_operation"
	AuditStatusChanged  = "status_changed"
	AuditCommentAdded   = "comment_added"
	AuditFileUploaded   = "file_uploaded"
	AuditUserCreated    = "user_created"
	AuditUserUpdated    = "user_updated"
)

// AuditLog is an immutable, append-only record of a privileged or sensitive
// action. Write failures never block the primary operation.
type AuditLog struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	ActionType string    `json:"action_type" gorm:"not null;index"`
	UserID     string    `json:"user_id" gorm:"not null;index"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	TaskID     string    `json:"task_id,omitempty" gorm:"index"`
	Metadata   JSONMap   `json:"metadata" gorm:"type:text"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
