package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/taskdeck/internal/cache"
	"github.com/geocoder89/taskdeck/internal/domain/task"
	"github.com/geocoder89/taskdeck/internal/http/handlers"
	"github.com/geocoder89/taskdeck/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

// Fake repository implementation of the handlers.TaskStore interface

type fakeTasksRepo struct {
	createFn func(ctx context.Context, t task.Task) (task.Task, error)
	getFn    func(ctx context.Context, ownerID, id string) (task.Task, error)
	listFn   func(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error)
	updateFn func(ctx context.Context, t task.Task) (task.Task, error)
	deleteFn func(ctx context.Context, ownerID, id string) error
}

func (f *fakeTasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	if f.createFn != nil {
		return f.createFn(ctx, t)
	}
	return t, nil
}

func (f *fakeTasksRepo) GetByID(ctx context.Context, ownerID, id string) (task.Task, error) {
	if f.getFn != nil {
		return f.getFn(ctx, ownerID, id)
	}
	return task.Task{}, task.ErrNotFound
}

func (f *fakeTasksRepo) List(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, t)
	}
	return t, nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ownerID, id)
	}
	return nil
}

// tasksEngine mounts the full task surface for one user on a memory repo.
func tasksEngine(repo handlers.TaskStore, userID string) *gin.Engine {
	h := handlers.NewTasksHandler(repo)

	r := gin.New()
	g := r.Group("/tasks", withUser(userID))
	g.GET("", h.ListTasks)
	g.POST("", h.CreateTask)
	g.GET("/:id", h.GetTaskByID)
	g.PUT("/:id", h.UpdateTask)
	g.PATCH("/:id", h.PatchTask)
	g.DELETE("/:id", h.DeleteTask)
	return r
}

func TestCreateTaskHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{name: "defaults", body: `{"title":"Write docs"}`, wantStatusCode: http.StatusCreated},
		{name: "full", body: `{"task_id":"TASK-0042","title":"Fix","type":"Bug","status":"In Progress","priority":"High","favorite":true}`, wantStatusCode: http.StatusCreated},
		{name: "missing title", body: `{"status":"Todo"}`, wantStatusCode: http.StatusBadRequest},
		{name: "bad status", body: `{"title":"x","status":"in progress"}`, wantStatusCode: http.StatusBadRequest},
		{name: "bad priority", body: `{"title":"x","priority":"Urgent"}`, wantStatusCode: http.StatusBadRequest},
		{name: "bad task id", body: `{"title":"x","task_id":"BUG-1"}`, wantStatusCode: http.StatusBadRequest},
		{name: "invalid json", body: `{"title":`, wantStatusCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tasksEngine(memory.NewTasksRepo(), "u1")

			w := doJSON(r, http.MethodPost, "/tasks", tt.body)
			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestCreateTaskAppliesDefaults(t *testing.T) {
	r := tasksEngine(memory.NewTasksRepo(), "u1")

	w := doJSON(r, http.MethodPost, "/tasks", `{"title":"Write docs"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}

	var got task.Task
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != task.StatusTodo || got.Priority != task.PriorityMedium || got.Type != task.DefaultType || got.TaskID == "" {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestTaskLifecycleIsOwnerScoped(t *testing.T) {
	repo := memory.NewTasksRepo()
	owner := tasksEngine(repo, "u1")
	intruder := tasksEngine(repo, "u2")

	w := doJSON(owner, http.MethodPost, "/tasks", `{"title":"Mine"}`)
	var created task.Task
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	path := "/tasks/" + created.ID

	if w := doJSON(intruder, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign get: %d", w.Code)
	}
	if w := doJSON(intruder, http.MethodPatch, path, `{"favorite":true}`); w.Code != http.StatusNotFound {
		t.Fatalf("foreign patch: %d", w.Code)
	}
	if w := doJSON(intruder, http.MethodDelete, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: %d", w.Code)
	}

	w = doJSON(owner, http.MethodPatch, path, `{"favorite":true,"status":"Done"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d body=%s", w.Code, w.Body.String())
	}
	var patched task.Task
	_ = json.Unmarshal(w.Body.Bytes(), &patched)
	if !patched.Favorite || patched.Status != task.StatusDone || patched.Title != "Mine" {
		t.Fatalf("unexpected patch result: %+v", patched)
	}

	full := `{"task_id":"TASK-0007","title":"Renamed","type":"Bug","status":"Backlog","priority":"Low","favorite":false}`
	w = doJSON(owner, http.MethodPut, path, full)
	if w.Code != http.StatusOK {
		t.Fatalf("put: %d body=%s", w.Code, w.Body.String())
	}

	if w := doJSON(owner, http.MethodPut, path, `{"title":"partial"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("incomplete put should be rejected, got %d", w.Code)
	}
	if w := doJSON(owner, http.MethodPatch, path, `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty patch should be rejected, got %d", w.Code)
	}

	if w := doJSON(owner, http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := doJSON(owner, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestMalformedTaskIDIsNotFound(t *testing.T) {
	repo := &fakeTasksRepo{
		getFn: func(ctx context.Context, ownerID, id string) (task.Task, error) {
			t.Errorf("repo reached with id %q", id)
			return task.Task{}, nil
		},
		deleteFn: func(ctx context.Context, ownerID, id string) error {
			t.Errorf("repo reached with id %q", id)
			return nil
		},
	}
	r := tasksEngine(repo, "u1")

	tests := []struct {
		name   string
		method string
		body   string
	}{
		{name: "get", method: http.MethodGet},
		{name: "put", method: http.MethodPut, body: `{"task_id":"TASK-1","title":"x","type":"Bug","status":"Todo","priority":"Low","favorite":false}`},
		{name: "patch", method: http.MethodPatch, body: `{"favorite":true}`},
		{name: "delete", method: http.MethodDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, tt.method, "/tasks/not-a-uuid", tt.body)
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestListTasksQueryParsing(t *testing.T) {
	var got task.ListFilter
	repo := &fakeTasksRepo{
		listFn: func(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error) {
			got = filter
			return nil, 25, nil
		},
	}
	r := tasksEngine(repo, "u1")

	w := doJSON(r, http.MethodGet, "/tasks?status=Todo,Done&status=Backlog&priority=High&type=Bug&favorite=true&q=login&sort=priority&order=asc&page=3&pageSize=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}

	if got.OwnerID != "u1" || len(got.Statuses) != 3 || len(got.Priorities) != 1 {
		t.Fatalf("unexpected filter: %+v", got)
	}
	if got.Type == nil || *got.Type != "Bug" || got.Favorite == nil || !*got.Favorite || got.Query == nil || *got.Query != "login" {
		t.Fatalf("optional filters not set: %+v", got)
	}
	if got.Sort != task.SortPriority || got.Desc || got.Limit != 5 || got.Offset != 10 {
		t.Fatalf("unexpected paging/sort: %+v", got)
	}

	var page task.Page
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 25 || page.Page != 3 || page.PageSize != 5 || page.TotalPages != 5 || page.Items == nil {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListTasksDefaultsAndBadQueries(t *testing.T) {
	var got task.ListFilter
	repo := &fakeTasksRepo{
		listFn: func(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error) {
			got = filter
			return nil, 0, nil
		},
	}
	r := tasksEngine(repo, "u1")

	if w := doJSON(r, http.MethodGet, "/tasks", ""); w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	if got.Sort != task.SortCreatedAt || !got.Desc || got.Limit != task.DefaultPageSize || got.Offset != 0 {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	if w := doJSON(r, http.MethodGet, "/tasks?pageSize=1000", ""); w.Code != http.StatusOK || got.Limit != task.MaxPageSize {
		t.Fatalf("page size should be capped, got %d limit %d", w.Code, got.Limit)
	}

	for _, q := range []string{"status=Doing", "priority=urgent", "favorite=maybe", "sort=owner", "order=sideways", "page=0", "pageSize=-1"} {
		if w := doJSON(r, http.MethodGet, "/tasks?"+q, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d, want 400", q, w.Code)
		}
	}
}

func TestListTasksHandler_CacheHitAndInvalidation(t *testing.T) {
	now := time.Now().UTC()
	c := cache.New(30 * time.Second)

	calls := 0
	repo := &fakeTasksRepo{
		listFn: func(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error) {
			calls++
			return []task.Task{{ID: "id-1", TaskID: "TASK-0001", Title: "Cached", Status: task.StatusTodo, Priority: task.PriorityLow, CreatedAt: now, UpdatedAt: now}}, 1, nil
		},
	}

	h := handlers.NewTasksHandlerWithCache(repo, c)
	r := gin.New()
	g := r.Group("/tasks", withUser("u1"))
	g.GET("", h.ListTasks)
	g.POST("", h.CreateTask)

	// First request: cache miss -> repo called
	if w := doJSON(r, http.MethodGet, "/tasks?pageSize=20", ""); w.Code != http.StatusOK {
		t.Fatalf("first call got %d body=%s", w.Code, w.Body.String())
	}

	// Second request: cache hit -> repo should NOT be called again
	if w := doJSON(r, http.MethodGet, "/tasks?pageSize=20", ""); w.Code != http.StatusOK {
		t.Fatalf("second call got %d", w.Code)
	}
	if calls != 1 {
		t.Fatalf("expected repo calls=1, got %d", calls)
	}

	// a write bumps the owner's version
	if w := doJSON(r, http.MethodPost, "/tasks", `{"title":"new"}`); w.Code != http.StatusCreated {
		t.Fatalf("create got %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/tasks?pageSize=20", ""); w.Code != http.StatusOK {
		t.Fatalf("third call got %d", w.Code)
	}
	if calls != 2 {
		t.Fatalf("expected repo calls=2 after invalidation, got %d", calls)
	}
}

func TestListTasksHandler_ETagNotModified(t *testing.T) {
	repo := &fakeTasksRepo{
		listFn: func(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error) {
			return []task.Task{{ID: "id-1", Title: "Stable"}}, 1, nil
		},
	}
	r := tasksEngine(repo, "u1")

	w1 := doJSON(r, http.MethodGet, "/tasks", "")
	etag := w1.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header in first response")
	}

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)

	if w2.Code != http.StatusNotModified {
		t.Fatalf("second call got %d, want %d, body=%s", w2.Code, http.StatusNotModified, w2.Body.String())
	}
	if w2.Body.Len() != 0 {
		t.Fatalf("expected empty body for 304, got %q", w2.Body.String())
	}
}
