package models

import "time"

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// ValidStatuses lists accepted status values in validation-error order.
var ValidStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusCompleted, StatusCancelled}

// ValidPriorities lists accepted priority values.
var ValidPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func IsValidStatus(s TaskStatus) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func IsValidPriority(p TaskPriority) bool {
	for _, v := range ValidPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// statusTransitions holds the allowed status edges. Cancellation edges are
// additionally gated on a privileged caller at the handler level.
var statusTransitions = map[TaskStatus][]TaskStatus{
	StatusTodo:       {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether the from->to status edge is allowed.
// Same-status writes are treated as no-ops, not transitions.
func CanTransition(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Task represents a work item. DueDate is a plain calendar date (YYYY-MM-DD);
// CompletedAt is stamped once, on the first transition into completed.
type Task struct {
	ID              string       `json:"id" gorm:"primaryKey"`
	Title           string       `json:"title" gorm:"not null"`
	Description     string       `json:"description"`
	Priority        TaskPriority `json:"priority" gorm:"not null;default:'medium'"`
	Status          TaskStatus   `json:"status" gorm:"not null;default:'todo';index"`
	AssignedTo      string       `json:"assigned_to" gorm:"index"`
	AssignedToName  string       `json:"assigned_to_name"`
	AssignedToEmail string       `json:"assigned_to_email"`
	CreatedBy       string       `json:"created_by" gorm:"index"`
	CreatedByName   string       `json:"created_by_name"`
	DueDate         string       `json:"due_date" gorm:"not null"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// DueDateLayout is the wire/storage format for task due dates.
const DueDateLayout = "2006-01-02"

// DueDateEnd resolves a calendar due date to its end-of-day instant in UTC.
// All on-time and overdue comparisons use this convention.
func DueDateEnd(dueDate string) (time.Time, error) {
	d, err := time.Parse(DueDateLayout, dueDate)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC), nil
}

// IsOverdue reports whether a task is past due and still open at the given
// instant. Completed and cancelled tasks are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return false
	}
	end, err := DueDateEnd(t.DueDate)
	if err != nil {
		return false
	}
	return now.After(end)
}
