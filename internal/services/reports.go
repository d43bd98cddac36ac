package services

import (
	"math"
	"time"

	"tripstars-api/internal/models"

	"gorm.io/gorm"
)

// UserProductivity aggregates one user's task statistics.
type UserProductivity struct {
	UserID                     string  `json:"user_id"`
	UserName                   string  `json:"user_name"`
	UserEmail                  string  `json:"user_email"`
	TotalTasksAssigned         int     `json:"total_tasks_assigned"`
	TasksCompleted             int     `json:"tasks_completed"`
	TasksCompletedOnTime       int     `json:"tasks_completed_on_time"`
	OverdueTasks               int     `json:"overdue_tasks"`
	AverageCompletionTimeHours float64 `json:"average_completion_time_hours"`
	ProductivityScore          float64 `json:"productivity_score"`
}

// TeamOverview aggregates across all users.
type TeamOverview struct {
	TotalUsers               int                `json:"total_users"`
	TotalTasks               int                `json:"total_tasks"`
	TotalCompleted           int                `json:"total_completed"`
	TotalOverdue             int                `json:"total_overdue"`
	AverageProductivityScore float64            `json:"average_productivity_score"`
	UserStats                []UserProductivity `json:"user_stats"`
}

// ProductivityScore computes the weighted score on a 0-100 scale:
// 40% completion rate, 30% on-time rate, 30% inverse overdue rate.
// Rounded to 2 decimals; zero assigned tasks scores zero.
func ProductivityScore(total, completed, completedOnTime, overdue int) float64 {
	if total == 0 {
		return 0.0
	}

	completionRate := float64(completed) / float64(total) * 100
	onTimeRate := float64(completedOnTime) / float64(total) * 100
	overduePenalty := float64(overdue) / float64(total) * 100

	score := completionRate*0.4 + onTimeRate*0.3 + (100-overduePenalty)*0.3
	score = math.Min(math.Max(score, 0), 100)
	return math.Round(score*100) / 100
}

// BuildUserProductivity computes productivity stats for one user from their
// assigned tasks. On-time means completed_at is no later than the due date's
// end of day (UTC).
func BuildUserProductivity(db *gorm.DB, user models.User, now time.Time) (UserProductivity, error) {
	var tasks []models.Task
	if err := db.Where("assigned_to = ?", user.ID).Find(&tasks).Error; err != nil {
		return UserProductivity{}, err
	}

	stats := UserProductivity{
		UserID:    user.ID,
		UserName:  user.FullName,
		UserEmail: user.Email,
	}
	stats.TotalTasksAssigned = len(tasks)

	var totalCompletionHours float64
	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			stats.TasksCompleted++
			if t.CompletedAt != nil {
				if end, err := models.DueDateEnd(t.DueDate); err == nil && !t.CompletedAt.After(end) {
					stats.TasksCompletedOnTime++
				}
				totalCompletionHours += t.CompletedAt.Sub(t.CreatedAt).Hours()
			}
		} else if t.IsOverdue(now) {
			stats.OverdueTasks++
		}
	}

	if stats.TasksCompleted > 0 {
		avg := totalCompletionHours / float64(stats.TasksCompleted)
		stats.AverageCompletionTimeHours = math.Round(avg*100) / 100
	}

	stats.ProductivityScore = ProductivityScore(
		stats.TotalTasksAssigned,
		stats.TasksCompleted,
		stats.TasksCompletedOnTime,
		stats.OverdueTasks,
	)
	return stats, nil
}

// BuildTeamOverview aggregates productivity across every user.
func BuildTeamOverview(db *gorm.DB, now time.Time) (TeamOverview, error) {
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return TeamOverview{}, err
	}

	overview := TeamOverview{
		TotalUsers: len(users),
		UserStats:  make([]UserProductivity, 0, len(users)),
	}

	var scoreSum float64
	for _, u := range users {
		stats, err := BuildUserProductivity(db, u, now)
		if err != nil {
			return TeamOverview{}, err
		}
		overview.UserStats = append(overview.UserStats, stats)
		overview.TotalTasks += stats.TotalTasksAssigned
		overview.TotalCompleted += stats.TasksCompleted
		overview.TotalOverdue += stats.OverdueTasks
		scoreSum += stats.ProductivityScore
	}

	if len(users) > 0 {
		avg := scoreSum / float64(len(users))
		overview.AverageProductivityScore = math.Round(avg*100) / 100
	}
	return overview, nil
}
