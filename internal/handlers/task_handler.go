package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tripstars-api/internal/database"
	"tripstars-api/internal/middleware"
	"tripstars-api/internal/models"
	"tripstars-api/internal/realtime"
	"tripstars-api/internal/roles"
	"tripstars-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	AssignedTo  string              `json:"assigned_to" binding:"required"`
	DueDate     string              `json:"due_date" binding:"required"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// Only set fields are applied; for a non-privileged assignee everything
// except Status is ignored.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *models.TaskPriority `json:"priority"`
	Status      *models.TaskStatus   `json:"status"`
	AssignedTo  *string              `json:"assigned_to"`
	DueDate     *string              `json:"due_date"`
}

// BulkTaskRequest is the payload for bulk update/cancel/delete.
type BulkTaskRequest struct {
	TaskIDs    []string             `json:"task_ids" binding:"required"`
	Status     *models.TaskStatus   `json:"status"`
	Priority   *models.TaskPriority `json:"priority"`
	AssignedTo *string              `json:"assigned_to"`
	DueDate    *string              `json:"due_date"`
}

func statusValues() string {
	parts := make([]string, len(models.ValidStatuses))
	for i, s := range models.ValidStatuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func priorityValues() string {
	parts := make([]string, len(models.ValidPriorities))
	for i, p := range models.ValidPriorities {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}

// CreateTask handles POST /api/tasks. Any staff role may create; assigning
// to an admin requires a privileged caller.
func CreateTask(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.CurrentUser(c)

		var req CreateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		priority := req.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		if !models.IsValidPriority(priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be one of: " + priorityValues()})
			return
		}
		if _, err := models.DueDateEnd(req.DueDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date. Expected format: YYYY-MM-DD"})
			return
		}

		db := database.GetDB()

		var assignee models.User
		if err := db.Where("id = ?", req.AssignedTo).First(&assignee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Assigned user not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate assignee"})
			}
			return
		}

		if !roles.CanAssignTo(caller.Role, assignee.Role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to assign tasks to " + assignee.Role + " users"})
			return
		}

		task := models.Task{
			ID:              uuid.NewString(),
			Title:           req.Title,
			Description:     req.Description,
			Priority:        priority,
			Status:          models.StatusTodo,
			AssignedTo:      assignee.ID,
			AssignedToName:  assignee.FullName,
			AssignedToEmail: assignee.Email,
			CreatedBy:       caller.ID,
			CreatedByName:   caller.FullName,
			DueDate:         req.DueDate,
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}

		if err := db.Create(&task).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
			return
		}

		services.Notify(hub, assignee.ID, models.NotifTaskAssigned,
			fmt.Sprintf("You have been assigned a new task: '%s'", task.Title), task.ID)
		services.Mail().SendTaskAssigned(assignee.Email, assignee.FullName, task.Title, task.DueDate, caller.FullName)
		services.LogAudit(caller, models.AuditTaskCreated, task.ID, map[string]any{
			"task_title":  task.Title,
			"assigned_to": assignee.FullName,
			"priority":    string(task.Priority),
		})

		c.JSON(http.StatusCreated, task)
	}
}

// ListTasks handles GET /api/tasks with search, filters, sorting, and
// skip/limit pagination. Every staff user sees every task.
func ListTasks(c *gin.Context) {
	db := database.GetDB()
	query := db.Model(&models.Task{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if status := c.Query("status"); status != "" {
		if !models.IsValidStatus(models.TaskStatus(status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be one of: " + statusValues()})
			return
		}
		query = query.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		if !models.IsValidPriority(models.TaskPriority(priority)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be one of: " + priorityValues()})
			return
		}
		query = query.Where("priority = ?", priority)
	}
	if assignedTo := c.Query("assigned_to"); assignedTo != "" {
		query = query.Where("assigned_to = ?", assignedTo)
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}
	if from := c.Query("due_date_from"); from != "" {
		query = query.Where("due_date >= ?", from)
	}
	if to := c.Query("due_date_to"); to != "" {
		query = query.Where("due_date <= ?", to)
	}
	if c.Query("overdue") == "true" {
		// A task due today is not overdue until tomorrow (end-of-day rule);
		// YYYY-MM-DD strings compare correctly lexicographically.
		today := time.Now().UTC().Format(models.DueDateLayout)
		query = query.Where("status NOT IN ? AND due_date < ?",
			[]models.TaskStatus{models.StatusCompleted, models.StatusCancelled}, today)
	}

	sortBy := c.DefaultQuery("sort_by", "created_at")
	sortOrder := strings.ToLower(c.DefaultQuery("sort_order", "desc"))
	if sortOrder != "asc" && sortOrder != "desc" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort_order. Must be asc or desc"})
		return
	}
	var orderExpr string
	switch sortBy {
	case "created_at", "due_date", "status":
		orderExpr = sortBy + " " + sortOrder
	case "priority":
		orderExpr = "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END " + sortOrder
	case "title":
		orderExpr = "title COLLATE NOCASE " + sortOrder
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort_by. Must be one of: created_at, due_date, priority, status, title"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tasks"})
		return
	}

	var tasks []models.Task
	if err := query.Session(&gorm.Session{}).Order(orderExpr).Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetTaskByID handles GET /api/tasks/:id
func GetTaskByID(c *gin.Context) {
	var task models.Task
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask handles PATCH /api/tasks/:id. Privileged roles may change any
// field; the (non-privileged) assignee may change only status.
func UpdateTask(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.CurrentUser(c)
		db := database.GetDB()

		var task models.Task
		if err := db.Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}

		var req UpdateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		privileged := roles.IsPrivileged(caller.Role)
		if !privileged {
			if task.AssignedTo != caller.ID {
				c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this task"})
				return
			}
			// Assignees may change only status; other fields are ignored.
			req = UpdateTaskRequest{Status: req.Status}
		}

		updates := map[string]any{}

		if req.Title != nil && *req.Title != task.Title {
			updates["title"] = *req.Title
		}
		if req.Description != nil && *req.Description != task.Description {
			updates["description"] = *req.Description
		}
		if req.Priority != nil && *req.Priority != task.Priority {
			if !models.IsValidPriority(*req.Priority) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be one of: " + priorityValues()})
				return
			}
			updates["priority"] = *req.Priority
		}
		if req.DueDate != nil && *req.DueDate != task.DueDate {
			if _, err := models.DueDateEnd(*req.DueDate); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date. Expected format: YYYY-MM-DD"})
				return
			}
			updates["due_date"] = *req.DueDate
		}

		var newAssignee *models.User
		if req.AssignedTo != nil && *req.AssignedTo != task.AssignedTo {
			var u models.User
			if err := db.Where("id = ?", *req.AssignedTo).First(&u).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Assigned user not found"})
				return
			}
			if !roles.CanAssignTo(caller.Role, u.Role) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to assign tasks to " + u.Role + " users"})
				return
			}
			newAssignee = &u
			updates["assigned_to"] = u.ID
			updates["assigned_to_name"] = u.FullName
			updates["assigned_to_email"] = u.Email
		}

		statusChanged := false
		if req.Status != nil && *req.Status != task.Status {
			newStatus := *req.Status
			if !models.IsValidStatus(newStatus) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be one of: " + statusValues()})
				return
			}
			if newStatus == models.StatusCancelled && !privileged {
				c.JSON(http.StatusForbidden, gin.H{"error": "Only admins and managers can cancel tasks"})
				return
			}
			if !models.CanTransition(task.Status, newStatus) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("Invalid status transition from '%s' to '%s'", task.Status, newStatus),
				})
				return
			}
			updates["status"] = newStatus
			statusChanged = true
			// completed_at is stamped once and never reset by later edits.
			if newStatus == models.StatusCompleted && task.CompletedAt == nil {
				updates["completed_at"] = time.Now().UTC()
			}
		}

		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
			return
		}
		updates["updated_at"] = time.Now().UTC()

		// Updates mutates the model's fields in place; capture the old values
		// first.
		oldStatus := task.Status
		oldAssigneeID := task.AssignedTo
		oldAssigneeName := task.AssignedToName

		if err := db.Model(&task).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
			return
		}

		if newAssignee != nil {
			services.Notify(hub, newAssignee.ID, models.NotifTaskAssigned,
				fmt.Sprintf("Task '%s' has been reassigned to you by %s", task.Title, caller.FullName), task.ID)
			services.Mail().SendTaskAssigned(newAssignee.Email, newAssignee.FullName, task.Title, task.DueDate, caller.FullName)
			services.LogAudit(caller, models.AuditTaskReassigned, task.ID, map[string]any{
				"task_title":   task.Title,
				"old_assignee": oldAssigneeName,
				"new_assignee": newAssignee.FullName,
			})
		}

		if statusChanged {
			newStatus := *req.Status
			if caller.ID != oldAssigneeID {
				services.Notify(hub, oldAssigneeID, models.NotifStatusChanged,
					fmt.Sprintf("Task '%s' status changed to: %s", task.Title,
						strings.ReplaceAll(string(newStatus), "_", " ")), task.ID)
			}
			services.LogAudit(caller, models.AuditStatusChanged, task.ID, map[string]any{
				"task_title": task.Title,
				"old_status": string(oldStatus),
				"new_status": string(newStatus),
			})
		}

		var updated models.Task
		if err := db.Where("id = ?", task.ID).First(&updated).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteTask handles DELETE /api/tasks/:id: direct deletion is disabled by
// design; cancel the task instead. Permanent removal exists only via the
// privileged bulk-delete path.
func DeleteTask(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "Task deletion is not allowed. Use status update to 'cancelled' instead.",
	})
}

// CancelTask handles PATCH /api/tasks/:id/cancel (privileged only). Sets
// cancelled unconditionally: cancellation wins even over completed tasks,
// and completed_at, if set, is left intact.
func CancelTask(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	db := database.GetDB()

	var task models.Task
	if err := db.Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	oldStatus := task.Status
	if err := db.Model(&task).Updates(map[string]any{
		"status":     models.StatusCancelled,
		"updated_at": time.Now().UTC(),
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel task"})
		return
	}

	services.LogAudit(caller, models.AuditTaskCancelled, task.ID, map[string]any{
		"task_title": task.Title,
		"old_status": string(oldStatus),
		"new_status": string(models.StatusCancelled),
	})

	var updated models.Task
	if err := db.Where("id = ?", task.ID).First(&updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// BulkUpdateTasks handles POST /api/tasks/bulk/update (privileged only).
// Applies the patch to the explicit ID list and reports affected vs.
// requested counts; a partial mismatch never aborts the batch.
func BulkUpdateTasks(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	var req BulkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.TaskIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_ids must not be empty"})
		return
	}

	db := database.GetDB()
	updates := map[string]any{}

	if req.Status != nil {
		if !models.IsValidStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be one of: " + statusValues()})
			return
		}
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		if !models.IsValidPriority(*req.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be one of: " + priorityValues()})
			return
		}
		updates["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		if _, err := models.DueDateEnd(*req.DueDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date. Expected format: YYYY-MM-DD"})
			return
		}
		updates["due_date"] = *req.DueDate
	}
	if req.AssignedTo != nil {
		var u models.User
		if err := db.Where("id = ?", *req.AssignedTo).First(&u).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assigned user not found"})
			return
		}
		if !roles.CanAssignTo(caller.Role, u.Role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to assign tasks to " + u.Role + " users"})
			return
		}
		updates["assigned_to"] = u.ID
		updates["assigned_to_name"] = u.FullName
		updates["assigned_to_email"] = u.Email
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	updates["updated_at"] = time.Now().UTC()

	res := db.Model(&models.Task{}).Where("id IN ?", req.TaskIDs).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tasks"})
		return
	}
	// Bulk completion stamps completed_at only where it was never set.
	if req.Status != nil && *req.Status == models.StatusCompleted {
		db.Model(&models.Task{}).
			Where("id IN ? AND completed_at IS NULL", req.TaskIDs).
			Update("completed_at", time.Now().UTC())
	}

	updated := int(res.RowsAffected)
	services.LogAudit(caller, models.AuditTaskBulk, "", map[string]any{
		"operation":     "update",
		"requested":     len(req.TaskIDs),
		"updated_count": updated,
	})

	c.JSON(http.StatusOK, gin.H{
		"updated_count": updated,
		"failed_count":  len(req.TaskIDs) - updated,
	})
}

// BulkCancelTasks handles POST /api/tasks/bulk/cancel (privileged only).
func BulkCancelTasks(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	var req BulkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.TaskIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_ids must not be empty"})
		return
	}

	res := database.GetDB().Model(&models.Task{}).Where("id IN ?", req.TaskIDs).Updates(map[string]any{
		"status":     models.StatusCancelled,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel tasks"})
		return
	}

	updated := int(res.RowsAffected)
	services.LogAudit(caller, models.AuditTaskBulk, "", map[string]any{
		"operation":     "cancel",
		"requested":     len(req.TaskIDs),
		"updated_count": updated,
	})

	c.JSON(http.StatusOK, gin.H{
		"updated_count": updated,
		"failed_count":  len(req.TaskIDs) - updated,
	})
}

// BulkDeleteTasks handles DELETE /api/tasks/bulk/delete (privileged only):
// the single permanent-removal path, cascading to the tasks' comments and
// attachments (files included).
func BulkDeleteTasks(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	var req BulkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.TaskIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_ids must not be empty"})
		return
	}

	db := database.GetDB()

	var existing []models.Task
	if err := db.Where("id IN ?", req.TaskIDs).Find(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	existingIDs := make([]string, len(existing))
	for i, t := range existing {
		existingIDs[i] = t.ID
	}

	if len(existingIDs) > 0 {
		var attachments []models.Attachment
		if err := db.Where("task_id IN ?", existingIDs).Find(&attachments).Error; err == nil {
			for _, a := range attachments {
				removeStoredFile(a.FilePath)
			}
		}
		db.Where("task_id IN ?", existingIDs).Delete(&models.Attachment{})
		db.Where("task_id IN ?", existingIDs).Delete(&models.Comment{})
		if err := db.Where("id IN ?", existingIDs).Delete(&models.Task{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tasks"})
			return
		}
	}

	services.LogAudit(caller, models.AuditTaskBulk, "", map[string]any{
		"operation":     "delete",
		"requested":     len(req.TaskIDs),
		"deleted_count": len(existingIDs),
	})

	c.JSON(http.StatusOK, gin.H{
		"updated_count": len(existingIDs),
		"failed_count":  len(req.TaskIDs) - len(existingIDs),
	})
}
