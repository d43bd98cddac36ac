package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/database"
	"tripstars-api/internal/models"
	"tripstars-api/internal/realtime"
	"tripstars-api/internal/routes"
	"tripstars-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestEnv swaps the global DB for a fresh in-memory one and returns a
// fully-wired router plus the hub behind it.
func newTestEnv(t *testing.T) (*gorm.DB, *gin.Engine, *realtime.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	hub := realtime.NewHub()
	return db, routes.SetupRoutes(hub), hub
}

func seedUser(t *testing.T, db *gorm.DB, email, name, role string) models.User {
	t.Helper()
	user, err := testutil.SeedUser(db, email, name, role)
	require.NoError(t, err)
	return user
}

func seedTask(t *testing.T, db *gorm.DB, creator, assignee models.User, status models.TaskStatus, dueDate string) models.Task {
	t.Helper()
	task := models.Task{
		ID:              uuid.NewString(),
		Title:           "Task " + uuid.NewString()[:8],
		Priority:        models.PriorityMedium,
		Status:          status,
		AssignedTo:      assignee.ID,
		AssignedToName:  assignee.FullName,
		AssignedToEmail: assignee.Email,
		CreatedBy:       creator.ID,
		CreatedByName:   creator.FullName,
		DueDate:         dueDate,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

// doJSON performs an authenticated JSON request against the router. A zero
// user sends no token.
func doJSON(t *testing.T, r *gin.Engine, user models.User, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if user.ID != "" {
		token, err := auth.GenerateAccessToken(user.ID, user.Role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// futureDate returns a due date comfortably in the future.
func futureDate() string {
	return time.Now().UTC().Add(14 * 24 * time.Hour).Format(models.DueDateLayout)
}
