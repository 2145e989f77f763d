package task

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateTaskID returns a display id like TASK-4821.
func GenerateTaskID() string {
	return fmt.Sprintf("%s%04d", TaskIDPrefix, rand.IntN(10000))
}

func NewFromCreateRequest(ownerID string, req CreateTaskRequest) Task {
	now := time.Now().UTC()

	t := Task{
		ID:          uuid.NewString(),
		TaskID:      strings.TrimSpace(req.TaskID),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        strings.TrimSpace(req.Type),
		Status:      req.Status,
		Priority:    req.Priority,
		Favorite:    req.Favorite,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if t.TaskID == "" {
		t.TaskID = GenerateTaskID()
	}
	if t.Type == "" {
		t.Type = DefaultType
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	return t
}

// ApplyUpdate overwrites every editable field.
func (t Task) ApplyUpdate(req UpdateTaskRequest) Task {
	t.TaskID = strings.TrimSpace(req.TaskID)
	t.Title = strings.TrimSpace(req.Title)
	t.Description = req.Description
	t.Type = strings.TrimSpace(req.Type)
	t.Status = req.Status
	t.Priority = req.Priority
	t.Favorite = req.Favorite
	t.UpdatedAt = time.Now().UTC()
	return t
}

// ApplyPatch overwrites only the fields present in req.
func (t Task) ApplyPatch(req PatchTaskRequest) Task {
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Type != nil {
		t.Type = strings.TrimSpace(*req.Type)
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.Favorite != nil {
		t.Favorite = *req.Favorite
	}
	t.UpdatedAt = time.Now().UTC()
	return t
}
