package handlers_test

import (
	"net/http"
	"testing"

	"tripstars-api/internal/models"
	"tripstars-api/internal/roles"

	"github.com/stretchr/testify/require"
)

func TestCreateComment_NotifiesAssigneeAndCreator(t *testing.T) {
	db, r, _ := newTestEnv(t)
	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	commenter := seedUser(t, db, "sales@tripstars.com", "Sales", roles.Sales)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	w := doJSON(t, r, commenter, http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{
		"content": "any update on this?",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var comment models.Comment
	decodeBody(t, w, &comment)
	require.Equal(t, commenter.ID, comment.UserID)
	require.Equal(t, task.ID, comment.TaskID)

	// Assignee and creator both hear about it; the commenter does not.
	var notifs []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotifCommentAdded).Find(&notifs).Error)
	require.Len(t, notifs, 2)
	recipients := map[string]bool{}
	for _, n := range notifs {
		recipients[n.UserID] = true
	}
	require.True(t, recipients[worker.ID])
	require.True(t, recipients[manager.ID])
	require.False(t, recipients[commenter.ID])
}

func TestCreateComment_AuthorNotSelfNotified(t *testing.T) {
	db, r, _ := newTestEnv(t)
	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	// The assignee comments on their own task: only the creator is told.
	w := doJSON(t, r, worker, http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{
		"content": "done by tomorrow",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var notifs []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotifCommentAdded).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	require.Equal(t, manager.ID, notifs[0].UserID)
}

func TestListComments_OldestFirst(t *testing.T) {
	db, r, _ := newTestEnv(t)
	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	for _, content := range []string{"first", "second", "third"} {
		w := doJSON(t, r, worker, http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{
			"content": content,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, manager, http.MethodGet, "/api/tasks/"+task.ID+"/comments", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Comments []models.Comment `json:"comments"`
		Count    int              `json:"count"`
	}
	decodeBody(t, w, &list)
	require.Equal(t, 3, list.Count)
	require.Equal(t, "first", list.Comments[0].Content)
	require.Equal(t, "third", list.Comments[2].Content)
}

func TestGetComment_ByID(t *testing.T) {
	db, r, _ := newTestEnv(t)
	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	w := doJSON(t, r, worker, http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{
		"content": "fetch me",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var comment models.Comment
	decodeBody(t, w, &comment)

	// Any staff user can fetch a single comment.
	w = doJSON(t, r, manager, http.MethodGet, "/api/comments/"+comment.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Comment
	decodeBody(t, w, &got)
	require.Equal(t, comment.ID, got.ID)
	require.Equal(t, "fetch me", got.Content)

	w = doJSON(t, r, manager, http.MethodGet, "/api/comments/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateComment_AuthorOnly(t *testing.T) {
	db, r, _ := newTestEnv(t)
	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	w := doJSON(t, r, worker, http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{
		"content": "original",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var comment models.Comment
	decodeBody(t, w, &comment)

	// Even a manager cannot edit someone else's comment.
	w = doJSON(t, r, manager, http.MethodPatch, "/api/comments/"+comment.ID, map[string]string{
		"content": "hijacked",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, worker, http.MethodPatch, "/api/comments/"+comment.ID, map[string]string{
		"content": "edited",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Comment
	decodeBody(t, w, &updated)
	require.Equal(t, "edited", updated.Content)
}

func TestDeleteComment_AuthorOrAdmin(t *testing.T) {
	db, r, _ := newTestEnv(t)
	admin := seedUser(t, db, "admin@tripstars.com", "Admin", roles.Admin)
	manager := seedUser(t, db, "manager@tripstars.com", "Manager", roles.Manager)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)
	task := seedTask(t, db, manager, worker, models.StatusTodo, futureDate())

	w := doJSON(t, r, worker, http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{
		"content": "delete me",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var comment models.Comment
	decodeBody(t, w, &comment)

	// Managers are not in the delete set.
	w = doJSON(t, r, manager, http.MethodDelete, "/api/comments/"+comment.ID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, admin, http.MethodDelete, "/api/comments/"+comment.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestCreateComment_TaskNotFound(t *testing.T) {
	db, r, _ := newTestEnv(t)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)

	w := doJSON(t, r, worker, http.MethodPost, "/api/tasks/missing/comments", map[string]string{
		"content": "into the void",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}
