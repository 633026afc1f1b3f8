package model

import "time"

type User struct {
	ID        int64
	Username  string
	Email     string
	CreatedAt time.Time
	LastLogin *time.Time
}

type Category struct {
	ID          int64
	Name        string
	Description string
	Color       string
	CreatedBy   *int64
	CreatedAt   time.Time

	// CreatedByUsername is resolved by the store when listing; empty for
	// system-seeded categories.
	CreatedByUsername string
}

type Task struct {
	ID          int64
	Title       string
	Description string
	CategoryID  *int64
	AssignedTo  *int64
	CreatedBy   *int64
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	CategoryName       string
	CategoryColor      string
	AssignedToUsername string
	CreatedByUsername  string
}

// Overdue reports whether the task has a due date in the past and is not
// yet completed or cancelled.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return false
	}
	return t.DueDate.Before(now)
}

type Assignment struct {
	ID         int64
	TaskID     int64
	UserID     int64
	Username   string
	AssignedAt time.Time
	AssignedBy *int64
}

// Filter narrows ListTasks results. Zero values mean "no constraint".
type Filter struct {
	Status     Status
	CategoryID *int64
	AssignedTo *int64
	// UserID scopes results to tasks created by or assigned to the user.
	UserID *int64
	// Query matches title or description, case-insensitive substring.
	Query string
}

// Stats aggregates task counts across the whole store or one user's scope.
type Stats struct {
	StatusCounts   map[Status]int
	CategoryCounts map[string]int
	TotalTasks     int
}

// Summary describes one user's tasks.
type Summary struct {
	TotalTasks   int
	Pending      int
	InProgress   int
	Completed    int
	Overdue      int
	AssignedToMe int
	CreatedByMe  int
}
