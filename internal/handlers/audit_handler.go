package handlers

import (
	"net/http"
	"strconv"

	"tripstars-api/internal/database"
	"tripstars-api/internal/models"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs handles GET /api/audit-logs (privileged only), newest first,
// with optional action_type / user_id / task_id filters.
func ListAuditLogs(c *gin.Context) {
	query := database.GetDB().Model(&models.AuditLog{})

	if actionType := c.Query("action_type"); actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if taskID := c.Query("task_id"); taskID != "" {
		query = query.Where("task_id = ?", taskID)
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count audit logs"})
		return
	}

	var logs []models.AuditLog
	if err := query.Order("timestamp desc").Limit(limit).Offset((page - 1) * limit).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit_logs": logs,
		"count":      len(logs),
		"total":      total,
		"page":       page,
		"limit":      limit,
	})
}
