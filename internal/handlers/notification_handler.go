package handlers

import (
	"net/http"
	"strconv"

	"tripstars-api/internal/database"
	"tripstars-api/internal/middleware"
	"tripstars-api/internal/models"

	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /api/notifications: the caller's own
// notifications, newest first.
func ListNotifications(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := database.GetDB().Where("user_id = ?", caller.ID)
	if c.Query("unread_only") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at desc").Limit(limit).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "count": len(notifications)})
}

// UnreadNotificationCount handles GET /api/notifications/unread-count.
func UnreadNotificationCount(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	var count int64
	if err := database.GetDB().Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", caller.ID, false).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read. Owner only;
// an already-read notification reports not-found, so clients can tell a
// repeat apart from a first mark.
func MarkNotificationRead(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	res := database.GetDB().Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", c.Param("id"), caller.ID, false).
		Update("is_read", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found or already read"})
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all.
func MarkAllNotificationsRead(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	res := database.GetDB().Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", caller.ID, false).
		Update("is_read", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_count": res.RowsAffected})
}
