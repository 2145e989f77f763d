package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/geocoder89/taskdeck/internal/domain/task"
)

type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]task.Task
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]task.Task),
	}
}

func (r *TasksRepo) Create(_ context.Context, t task.Task) (task.Task, error) {
	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TasksRepo) GetByID(_ context.Context, ownerID, id string) (task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok || t.OwnerID != ownerID {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (r *TasksRepo) List(_ context.Context, filter task.ListFilter) ([]task.Task, int, error) {
	r.mu.RLock()
	matched := make([]task.Task, 0, len(r.items))
	for _, t := range r.items {
		if filter.Matches(t) {
			matched = append(matched, t)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, filter.Compare)

	total := len(matched)
	if filter.Offset >= total {
		return []task.Task{}, total, nil
	}

	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func (r *TasksRepo) Update(_ context.Context, t task.Task) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return task.Task{}, task.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	r.items[t.ID] = t
	return t, nil
}

func (r *TasksRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok || t.OwnerID != ownerID {
		return task.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
