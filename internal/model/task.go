package model

import "time"

// TaskStatus represents the completion state of a task as exposed by
// the list endpoints.
type TaskStatus string

const (
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusIncomplete TaskStatus = "incomplete"
)

// Task represents a single to-do item owned by exactly one user.
// UserID is set at creation and never changes afterwards.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status computes the list bucket this task belongs to.
func (t *Task) Status() TaskStatus {
	if t.Completed {
		return TaskStatusCompleted
	}
	return TaskStatusIncomplete
}
