package scheduler

import (
	"fmt"
	"log"
	"time"

	"tripstars-api/internal/database"
	"tripstars-api/internal/models"
	"tripstars-api/internal/realtime"
	"tripstars-api/internal/services"
)

// suppressionWindow is the minimum gap between overdue notifications for the
// same task and assignee.
const suppressionWindow = 24 * time.Hour

// Scheduler runs the periodic overdue-task scan. The scan reads a snapshot
// of each task and may race concurrent updates; that is acceptable, the next
// cycle corrects it.
type Scheduler struct {
	hub      *realtime.Hub
	interval time.Duration
	stop     chan struct{}
}

func New(hub *realtime.Hub) *Scheduler {
	return &Scheduler{
		hub:      hub,
		interval: time.Hour,
		stop:     make(chan struct{}),
	}
}

// Start launches the scan loop in a goroutine.
func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.CheckOverdueTasks(time.Now().UTC())
			}
		}
	}()
	log.Println("Overdue-task scheduler started")
}

// Stop terminates the scan loop.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// CheckOverdueTasks notifies assignees of past-due open tasks, at most once
// per task per 24-hour window, and returns the number of notifications sent.
func (s *Scheduler) CheckOverdueTasks(now time.Time) int {
	db := database.GetDB()

	var tasks []models.Task
	if err := db.Where("status NOT IN ?", []models.TaskStatus{models.StatusCompleted, models.StatusCancelled}).
		Find(&tasks).Error; err != nil {
		log.Printf("scheduler: failed to load open tasks: %v", err)
		return 0
	}

	notified := 0
	for _, task := range tasks {
		if !task.IsOverdue(now) {
			continue
		}

		// Suppress if an overdue notification for this task and assignee
		// was created within the window.
		var last models.Notification
		err := db.Where("related_task_id = ? AND user_id = ? AND type = ?",
			task.ID, task.AssignedTo, models.NotifTaskOverdue).
			Order("created_at desc").First(&last).Error
		if err == nil && now.Sub(last.CreatedAt) < suppressionWindow {
			continue
		}

		msg := fmt.Sprintf("Task '%s' is overdue (due: %s)", task.Title, task.DueDate)
		services.Notify(s.hub, task.AssignedTo, models.NotifTaskOverdue, msg, task.ID)

		var assignee models.User
		if err := db.Where("id = ?", task.AssignedTo).First(&assignee).Error; err == nil {
			services.Mail().SendTaskOverdue(assignee.Email, assignee.FullName, task.Title, task.DueDate)
		}

		notified++
	}

	if notified > 0 {
		log.Printf("scheduler: sent %d overdue notification(s)", notified)
	}
	return notified
}
