package models

import "time"

// TaskStatus is a step of the task workflow.
type TaskStatus string

const (
	StatusPending     TaskStatus = "pending"
	StatusOnHold      TaskStatus = "onHold"
	StatusInProgress  TaskStatus = "inProgress"
	StatusUnderReview TaskStatus = "underReview"
	StatusCompleted   TaskStatus = "completed"
)

// Valid reports whether s is one of the known workflow statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOnHold, StatusInProgress, StatusUnderReview, StatusCompleted:
		return true
	}
	return false
}

// StatusChange is one entry of a task's status history.
type StatusChange struct {
	User      string     `json:"user" bson:"user"`
	Status    TaskStatus `json:"status" bson:"status"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}

// Task belongs to exactly one project.
type Task struct {
	ID          string         `json:"_id" bson:"_id"`
	TaskName    string         `json:"taskName" bson:"taskName"`
	Description string         `json:"description" bson:"description"`
	Project     string         `json:"project" bson:"project"`
	Status      TaskStatus     `json:"status" bson:"status"`
	CompletedBy []StatusChange `json:"completedBy" bson:"completedBy"`
	Notes       []string       `json:"notes" bson:"notes"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// TaskListItem is a task with its project populated.
type TaskListItem struct {
	Task
	Project ProjectSummary `json:"project"`
}

// StatusChangeView is a status history entry with its user populated.
type StatusChangeView struct {
	ID        string       `json:"_id,omitempty"`
	User      *UserSummary `json:"user"`
	Status    TaskStatus   `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// TaskDetail is a task with its history users and notes populated.
type TaskDetail struct {
	Task
	CompletedBy []StatusChangeView `json:"completedBy"`
	Notes       []NoteView         `json:"notes"`
}
