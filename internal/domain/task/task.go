package task

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("task not found")

const TaskIDPrefix = "TASK-"

type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
	StatusCanceled   Status = "Canceled"
)

// Statuses is in board order; the index is the sort rank.
var Statuses = []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusDone, StatusCanceled}

func (s Status) IsValid() bool {
	return s.Rank() >= 0
}

func (s Status) Rank() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return -1
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) IsValid() bool {
	return p.Rank() >= 0
}

func (p Priority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return -1
}

const DefaultType = "Feature"

type Task struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	OwnerID     string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Favorite    bool      `json:"favorite"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateTaskRequest struct {
	TaskID      string   `json:"task_id" binding:"omitempty,startswith=TASK-,max=32"`
	Title       string   `json:"title" binding:"required,min=1,max=200"`
	Description string   `json:"description" binding:"omitempty,max=2000"`
	Type        string   `json:"type" binding:"omitempty,max=40"`
	Status      Status   `json:"status" binding:"omitempty,task_status"`
	Priority    Priority `json:"priority" binding:"omitempty,task_priority"`
	Favorite    bool     `json:"favorite"`
}

// a full update payload; PatchTaskRequest covers partial edits such as
// toggling favorite from the dashboard.
type UpdateTaskRequest struct {
	TaskID      string   `json:"task_id" binding:"required,startswith=TASK-,max=32"`
	Title       string   `json:"title" binding:"required,min=1,max=200"`
	Description string   `json:"description" binding:"omitempty,max=2000"`
	Type        string   `json:"type" binding:"required,max=40"`
	Status      Status   `json:"status" binding:"required,task_status"`
	Priority    Priority `json:"priority" binding:"required,task_priority"`
	Favorite    bool     `json:"favorite"`
}

type PatchTaskRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
	Type        *string   `json:"type" binding:"omitempty,min=1,max=40"`
	Status      *Status   `json:"status" binding:"omitempty,task_status"`
	Priority    *Priority `json:"priority" binding:"omitempty,task_priority"`
	Favorite    *bool     `json:"favorite"`
}

func (p PatchTaskRequest) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Type == nil &&
		p.Status == nil && p.Priority == nil && p.Favorite == nil
}
