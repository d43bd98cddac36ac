package scheduler

import (
	"testing"
	"time"

	"tripstars-api/internal/database"
	"tripstars-api/internal/models"
	"tripstars-api/internal/roles"
	"tripstars-api/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) models.User {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	user, err := testutil.SeedUser(db, "assignee@tripstars.com", "Assignee", roles.TeamMember)
	require.NoError(t, err)
	return user
}

func seedTask(t *testing.T, assignee models.User, status models.TaskStatus, dueDate string) models.Task {
	t.Helper()
	task := models.Task{
		ID:         uuid.NewString(),
		Title:      "Overdue check " + uuid.NewString()[:8],
		Priority:   models.PriorityHigh,
		Status:     status,
		AssignedTo: assignee.ID,
		CreatedBy:  assignee.ID,
		DueDate:    dueDate,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, database.DB.Create(&task).Error)
	return task
}

func TestCheckOverdueTasksNotifiesAssignee(t *testing.T) {
	user := setupDB(t)
	// Notification timestamps come from the real clock, so the scan instant
	// must too.
	now := time.Now().UTC()
	pastDue := now.Add(-48 * time.Hour).Format(models.DueDateLayout)
	future := now.Add(30 * 24 * time.Hour).Format(models.DueDateLayout)

	overdue := seedTask(t, user, models.StatusInProgress, pastDue)
	seedTask(t, user, models.StatusTodo, future)           // not yet due
	seedTask(t, user, models.StatusCompleted, pastDue)     // finished
	seedTask(t, user, models.StatusCancelled, pastDue)     // cancelled

	s := New(nil)
	require.Equal(t, 1, s.CheckOverdueTasks(now))

	var notifs []models.Notification
	require.NoError(t, database.DB.Where("user_id = ?", user.ID).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	require.Equal(t, models.NotifTaskOverdue, notifs[0].Type)
	require.Equal(t, overdue.ID, notifs[0].RelatedTaskID)
}

func TestCheckOverdueTasksSuppressesRepeats(t *testing.T) {
	user := setupDB(t)
	now := time.Now().UTC()
	pastDue := now.Add(-48 * time.Hour).Format(models.DueDateLayout)

	seedTask(t, user, models.StatusInProgress, pastDue)

	s := New(nil)
	require.Equal(t, 1, s.CheckOverdueTasks(now))

	// An immediate second scan stays quiet.
	require.Equal(t, 0, s.CheckOverdueTasks(now.Add(time.Hour)))

	// Past the suppression window the reminder fires again.
	require.Equal(t, 1, s.CheckOverdueTasks(now.Add(25*time.Hour)))

	var count int64
	require.NoError(t, database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", user.ID, models.NotifTaskOverdue).
		Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestStartStop(t *testing.T) {
	setupDB(t)

	s := New(nil)
	s.interval = 10 * time.Millisecond
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
