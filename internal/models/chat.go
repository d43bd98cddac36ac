package models

import "time"

// Conversation is either a 1:1 direct-message thread (exactly 2 participants,
// deduplicated on creation) or a named group (at least 3 participants).
// The participant list always includes the creator.
type Conversation struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name"`
	IsGroup          bool       `json:"is_group"`
	Participants     StringList `json:"participants" gorm:"type:text"`
	ParticipantNames StringList `json:"participant_names" gorm:"type:text"`
	CreatedBy        string     `json:"created_by" gorm:"not null"`
	LastMessage      string     `json:"last_message"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
	PinnedBy         StringList `json:"pinned_by" gorm:"type:text"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether userID may read/write this conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants.Contains(userID)
}

// DisplayNameFor resolves the conversation name shown to a given viewer:
// the group name, or the other DM participant's name.
func (c *Conversation) DisplayNameFor(viewerID string) string {
	if c.IsGroup {
		if c.Name != "" {
			return c.Name
		}
		return "Group"
	}
	for i, pid := range c.Participants {
		if pid != viewerID && i < len(c.ParticipantNames) {
			return c.ParticipantNames[i]
		}
	}
	return "Unknown"
}

// Message belongs to one conversation. ReadBy accumulates and never shrinks;
// the sender is a member from creation. A message has at most one pinner.
type Message struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	ConversationID string     `json:"conversation_id" gorm:"not null;index"`
	SenderID       string     `json:"sender_id" gorm:"not null"`
	SenderName     string     `json:"sender_name"`
	Content        string     `json:"content"`
	MessageType    string     `json:"message_type" gorm:"default:'text'"`
	AttachmentID   string     `json:"attachment_id,omitempty"`
	AttachmentName string     `json:"attachment_name,omitempty"`
	AttachmentType string     `json:"attachment_type,omitempty"`
	ReadBy         StringList `json:"read_by" gorm:"type:text"`
	IsPinned       bool       `json:"is_pinned"`
	PinnedBy       string     `json:"pinned_by,omitempty"`
	PinnedAt       *time.Time `json:"pinned_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}
