package services

import (
	"log"
	"time"

	"tripstars-api/internal/database"
	"tripstars-api/internal/models"
	"tripstars-api/internal/realtime"

	"github.com/google/uuid"
)

// Notify persists a notification and pushes it to the recipient if online.
// Failures are logged and swallowed; the caller's primary operation is never
// affected.
func Notify(hub *realtime.Hub, userID, notifType, message, relatedTaskID string) *models.Notification {
	notif := models.Notification{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          notifType,
		RelatedTaskID: relatedTaskID,
		Message:       message,
		IsRead:        false,
		CreatedAt:     time.Now().UTC(),
	}

	if err := database.GetDB().Create(&notif).Error; err != nil {
		log.Printf("notification: failed to create for user %s: %v", userID, err)
		return nil
	}

	if hub != nil {
		hub.BroadcastNotification(userID, notif)
	}
	return &notif
}
