package handlers

import (
	"fmt"
	"net/http"
	"time"

	"tripstars-api/internal/database"
	"tripstars-api/internal/middleware"
	"tripstars-api/internal/models"
	"tripstars-api/internal/realtime"
	"tripstars-api/internal/roles"
	"tripstars-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CommentRequest is the payload for creating or editing a comment.
type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateComment handles POST /api/tasks/:id/comments. Notifies the task's
// assignee and creator, skipping the author.
func CreateComment(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.CurrentUser(c)
		db := database.GetDB()

		var task models.Task
		if err := db.Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}

		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
			return
		}

		comment := models.Comment{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			UserID:    caller.ID,
			UserName:  caller.FullName,
			UserEmail: caller.Email,
			Content:   req.Content,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := db.Create(&comment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
			return
		}

		msg := fmt.Sprintf("%s commented on task '%s'", caller.FullName, task.Title)
		for _, recipient := range commentRecipients(task, caller.ID) {
			services.Notify(hub, recipient, models.NotifCommentAdded, msg, task.ID)
		}
		if task.AssignedTo != caller.ID {
			services.Mail().SendCommentAdded(task.AssignedToEmail, task.AssignedToName, task.Title, caller.FullName, req.Content)
		}

		c.JSON(http.StatusCreated, comment)
	}
}

// commentRecipients returns the task's assignee and creator, deduplicated,
// excluding the comment author.
func commentRecipients(task models.Task, authorID string) []string {
	var out []string
	if task.AssignedTo != authorID {
		out = append(out, task.AssignedTo)
	}
	if task.CreatedBy != authorID && task.CreatedBy != task.AssignedTo {
		out = append(out, task.CreatedBy)
	}
	return out
}

// ListComments handles GET /api/tasks/:id/comments, oldest first.
func ListComments(c *gin.Context) {
	db := database.GetDB()

	var task models.Task
	if err := db.Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	var comments []models.Comment
	if err := db.Where("task_id = ?", task.ID).Order("created_at asc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// GetComment handles GET /api/comments/:id.
func GetComment(c *gin.Context) {
	var comment models.Comment
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&comment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	c.JSON(http.StatusOK, comment)
}

// UpdateComment handles PATCH /api/comments/:id. Author only.
func UpdateComment(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	db := database.GetDB()

	var comment models.Comment
	if err := db.Where("id = ?", c.Param("id")).First(&comment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if comment.UserID != caller.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can edit a comment"})
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}

	if err := db.Model(&comment).Updates(map[string]any{
		"content":    req.Content,
		"updated_at": time.Now().UTC(),
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	var updated models.Comment
	if err := db.Where("id = ?", comment.ID).First(&updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comment"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteComment handles DELETE /api/comments/:id. Author or admin.
func DeleteComment(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	db := database.GetDB()

	var comment models.Comment
	if err := db.Where("id = ?", c.Param("id")).First(&comment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if comment.UserID != caller.ID && caller.Role != roles.Admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this comment"})
		return
	}

	if err := db.Delete(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}
	c.Status(http.StatusNoContent)
}
