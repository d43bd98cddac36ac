package services

import (
	"log"
	"time"

	"tripstars-api/internal/database"
	"tripstars-api/internal/models"

	"github.com/google/uuid"
)

// LogAudit appends an audit entry for a privileged or sensitive action.
// Write failures are logged and swallowed, never blocking the primary action.
func LogAudit(actor models.User, actionType, taskID string, metadata map[string]any) {
	entry := models.AuditLog{
		ID:         uuid.NewString(),
		ActionType: actionType,
		UserID:     actor.ID,
		UserName:   actor.FullName,
		UserEmail:  actor.Email,
		TaskID:     taskID,
		Metadata:   metadata,
		Timestamp:  time.Now().UTC(),
	}

	if err := database.GetDB().Create(&entry).Error; err != nil {
		log.Printf("audit: failed to record %s by %s: %v", actionType, actor.Email, err)
	}
}
