package models

import "time"

// Attachment is a stored file owned by one task. Deleting it also removes
// the underlying file on disk.
type Attachment struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	TaskID          string    `json:"task_id" gorm:"not null;index"`
	UploadedBy      string    `json:"uploaded_by" gorm:"not null"`
	UploadedByName  string    `json:"uploaded_by_name"`
	UploadedByEmail string    `json:"uploaded_by_email"`
	FileName        string    `json:"file_name" gorm:"not null"`
	FileType        string    `json:"file_type"`
	FileSize        int64     `json:"file_size"`
	FilePath        string    `json:"-"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// ChatAttachment is a stored file uploaded into a conversation, linked to a
// message once that message is sent.
type ChatAttachment struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"not null;index"`
	MessageID      string    `json:"message_id"`
	UploadedBy     string    `json:"uploaded_by" gorm:"not null"`
	UploadedByName string    `json:"uploaded_by_name"`
	FileName       string    `json:"file_name" gorm:"not null"`
	FileType       string    `json:"file_type"`
	FileSize       int64     `json:"file_size"`
	FilePath       string    `json:"-"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

func (ChatAttachment) TableName() string {
	return "chat_attachments"
}
