package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
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
)

// maxUploadSize caps a single uploaded file at 10 MB.
const maxUploadSize = 10 << 20

// allowedExtensions is the closed set of accepted upload types.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".doc":  true,
	".docx": true,
}

var uploadDir = "uploads"

// SetUploadDir points file storage at dir and creates it. Called once at
// startup before any upload handler runs.
func SetUploadDir(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "chat"), 0o755); err != nil {
		return err
	}
	uploadDir = dir
	return nil
}

func allowedExtensionList() string {
	exts := []string{".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx"}
	return strings.Join(exts, ", ")
}

// storeUploadedFile validates extension and size, then saves the file under
// dir with a random name. Returns the stored path and the lowercased ext.
func storeUploadedFile(c *gin.Context, dir string) (string, string, string, int64, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return "", "", "", 0, false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed. Allowed types: " + allowedExtensionList()})
		return "", "", "", 0, false
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum size is 10MB"})
		return "", "", "", 0, false
	}

	storedPath := filepath.Join(dir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return "", "", "", 0, false
	}
	return storedPath, filepath.Base(file.Filename), ext, file.Size, true
}

func removeStoredFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("attachments: failed to remove %s: %v", path, err)
	}
}

// UploadAttachment handles POST /api/tasks/:id/attachments (multipart).
func UploadAttachment(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.CurrentUser(c)
		db := database.GetDB()

		var task models.Task
		if err := db.Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}

		storedPath, origName, ext, size, ok := storeUploadedFile(c, uploadDir)
		if !ok {
			return
		}

		attachment := models.Attachment{
			ID:              uuid.NewString(),
			TaskID:          task.ID,
			UploadedBy:      caller.ID,
			UploadedByName:  caller.FullName,
			UploadedByEmail: caller.Email,
			FileName:        origName,
			FileType:        ext,
			FileSize:        size,
			FilePath:        storedPath,
			UploadedAt:      time.Now().UTC(),
		}
		if err := db.Create(&attachment).Error; err != nil {
			removeStoredFile(storedPath)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save attachment"})
			return
		}

		msg := fmt.Sprintf("%s uploaded '%s' to task '%s'", caller.FullName, attachment.FileName, task.Title)
		for _, recipient := range commentRecipients(task, caller.ID) {
			services.Notify(hub, recipient, models.NotifFileUploaded, msg, task.ID)
		}
		services.LogAudit(caller, models.AuditFileUploaded, task.ID, map[string]any{
			"task_title": task.Title,
			"file_name":  attachment.FileName,
			"file_size":  attachment.FileSize,
		})

		c.JSON(http.StatusCreated, attachment)
	}
}

// ListAttachments handles GET /api/tasks/:id/attachments, newest first.
func ListAttachments(c *gin.Context) {
	db := database.GetDB()

	var task models.Task
	if err := db.Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	var attachments []models.Attachment
	if err := db.Where("task_id = ?", task.ID).Order("uploaded_at desc").Find(&attachments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attachments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": attachments, "count": len(attachments)})
}

// DownloadAttachment handles GET /api/attachments/:id/download, serving the
// stored bytes under the original file name.
func DownloadAttachment(c *gin.Context) {
	var attachment models.Attachment
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&attachment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}
	if _, err := os.Stat(attachment.FilePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found on server"})
		return
	}
	c.FileAttachment(attachment.FilePath, attachment.FileName)
}

// DeleteAttachment handles DELETE /api/attachments/:id. Uploader or admin;
// removes the database row and the stored file.
func DeleteAttachment(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	db := database.GetDB()

	var attachment models.Attachment
	if err := db.Where("id = ?", c.Param("id")).First(&attachment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}
	if attachment.UploadedBy != caller.ID && caller.Role != roles.Admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this attachment"})
		return
	}

	if err := db.Delete(&attachment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete attachment"})
		return
	}
	removeStoredFile(attachment.FilePath)

	c.Status(http.StatusNoContent)
}
