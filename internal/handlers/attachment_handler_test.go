package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/handlers"
	"tripstars-api/internal/models"
	"tripstars-api/internal/roles"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func uploadFile(t *testing.T, r *gin.Engine, user models.User, path, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	token, err := auth.GenerateAccessToken(user.ID, user.Role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadAttachment_Success(t *testing.T) {
	db, r, _ := newTestEnv(t)
	require.NoError(t, handlers.SetUploadDir(t.TempDir()))

	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	w := uploadFile(t, r, manager, "/api/tasks/"+task.ID+"/attachments", "contract.pdf", []byte("%PDF-1.4 fake"))
	require.Equal(t, http.StatusCreated, w.Code)

	var att models.Attachment
	decodeBody(t, w, &att)
	require.Equal(t, "contract.pdf", att.FileName)
	require.Equal(t, ".pdf", att.FileType)
	require.Equal(t, manager.ID, att.UploadedBy)

	// The assignee is told about the file.
	var notifs []models.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", worker.ID, models.NotifFileUploaded).Find(&notifs).Error)
	require.Len(t, notifs, 1)

	// Download round-trips the bytes.
	req := httptest.NewRequest(http.MethodGet, "/api/attachments/"+att.ID+"/download", nil)
	token, err := auth.GenerateAccessToken(worker.ID, worker.Role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	dl := httptest.NewRecorder()
	r.ServeHTTP(dl, req)
	require.Equal(t, http.StatusOK, dl.Code)
	require.Equal(t, "%PDF-1.4 fake", dl.Body.String())
}

func TestUploadAttachment_RejectsDisallowedExtension(t *testing.T) {
	db, r, _ := newTestEnv(t)
	require.NoError(t, handlers.SetUploadDir(t.TempDir()))

	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	w := uploadFile(t, r, manager, "/api/tasks/"+task.ID+"/attachments", "malware.exe", []byte("MZ"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = uploadFile(t, r, manager, "/api/tasks/"+task.ID+"/attachments", "script.sh", []byte("#!/bin/sh"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Attachment{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestDeleteAttachment_UploaderOrAdmin(t *testing.T) {
	db, r, _ := newTestEnv(t)
	require.NoError(t, handlers.SetUploadDir(t.TempDir()))

	admin := seedUser(t, db, "admin@tripstars.com", "Admin", roles.Admin)
	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	w := uploadFile(t, r, worker, "/api/tasks/"+task.ID+"/attachments", "photo.jpg", []byte("jpegdata"))
	require.Equal(t, http.StatusCreated, w.Code)
	var att models.Attachment
	decodeBody(t, w, &att)

	// A manager who is not the uploader cannot delete it.
	w = doJSON(t, r, manager, http.MethodDelete, "/api/attachments/"+att.ID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, admin, http.MethodDelete, "/api/attachments/"+att.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Attachment{}).Where("id = ?", att.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestUploadChatAttachment_ParticipantsOnly(t *testing.T) {
	db, r, _ := newTestEnv(t)
	require.NoError(t, handlers.SetUploadDir(t.TempDir()))

	alice := seedUser(t, db, "alice@tripstars.com", "Alice", roles.TeamMember)
	bob := seedUser(t, db, "bob@tripstars.com", "Bob", roles.Sales)
	eve := seedUser(t, db, "eve@tripstars.com", "Eve", roles.Marketing)

	w := doJSON(t, r, alice, http.MethodPost, "/api/chat/conversations", map[string]any{
		"participant_ids": []string{bob.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var conv struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &conv)

	w = uploadFile(t, r, eve, "/api/chat/conversations/"+conv.ID+"/attachments", "doc.pdf", []byte("pdf"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = uploadFile(t, r, alice, "/api/chat/conversations/"+conv.ID+"/attachments", "doc.pdf", []byte("pdf"))
	require.Equal(t, http.StatusCreated, w.Code)
	var att models.ChatAttachment
	decodeBody(t, w, &att)

	// Sending a message that references the attachment links the two.
	w = doJSON(t, r, alice, http.MethodPost, "/api/chat/conversations/"+conv.ID+"/messages", map[string]any{
		"attachment_id": att.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var msg models.Message
	decodeBody(t, w, &msg)
	require.Equal(t, "file", msg.MessageType)
	require.Equal(t, att.ID, msg.AttachmentID)
	require.Equal(t, "doc.pdf", msg.AttachmentName)

	var linked models.ChatAttachment
	require.NoError(t, db.Where("id = ?", att.ID).First(&linked).Error)
	require.Equal(t, msg.ID, linked.MessageID)
}
