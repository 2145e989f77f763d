package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/taskdeck/internal/cache"
	"github.com/geocoder89/taskdeck/internal/domain/task"
	"github.com/geocoder89/taskdeck/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskStore interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	GetByID(ctx context.Context, ownerID, id string) (task.Task, error)
	List(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error)
	Update(ctx context.Context, t task.Task) (task.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type TasksHandler struct {
	repo  TaskStore
	cache cache.Store
}

func NewTasksHandler(repo TaskStore) *TasksHandler {
	RegisterValidators()
	return &TasksHandler{repo: repo}
}

func NewTasksHandlerWithCache(repo TaskStore, c cache.Store) *TasksHandler {
	h := NewTasksHandler(repo)
	h.cache = c
	return h
}

func ownerFrom(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return "", false
	}
	return id, true
}

// taskIDFrom answers 404 for ids that cannot name a stored task.
func taskIDFrom(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "Task not found")
		return "", false
	}
	return id, true
}

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t, err := h.repo.Create(ctx.Request.Context(), task.NewFromCreateRequest(ownerID, req))
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "create task failed", "err", err)
		RespondInternal(ctx, "Could not create task")
		return
	}

	h.bumpVersion(ctx.Request.Context(), ownerID)
	ctx.JSON(http.StatusCreated, t)
}

// multiValue accepts both ?status=a&status=b and ?status=a,b.
func multiValue(ctx *gin.Context, key string) []string {
	var out []string
	for _, raw := range ctx.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseListQuery(ctx *gin.Context, ownerID string) (task.ListFilter, int, int, map[string]string) {
	problems := map[string]string{}
	filter := task.ListFilter{OwnerID: ownerID, Sort: task.SortCreatedAt, Desc: true}

	for _, s := range multiValue(ctx, "status") {
		st := task.Status(s)
		if !st.IsValid() {
			problems["status"] = "must be one of Backlog, Todo, In Progress, Done, Canceled"
			continue
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	for _, p := range multiValue(ctx, "priority") {
		pr := task.Priority(p)
		if !pr.IsValid() {
			problems["priority"] = "must be one of Low, Medium, High"
			continue
		}
		filter.Priorities = append(filter.Priorities, pr)
	}

	if v := strings.TrimSpace(ctx.Query("type")); v != "" {
		filter.Type = &v
	}

	if v := strings.TrimSpace(ctx.Query("favorite")); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			problems["favorite"] = "must be a boolean"
		} else {
			filter.Favorite = &fav
		}
	}

	if v := strings.TrimSpace(ctx.Query("q")); v != "" {
		filter.Query = &v
	}

	if v := ctx.Query("sort"); v != "" {
		sf := task.SortField(v)
		if !sf.IsValid() {
			problems["sort"] = "must be one of task_id, title, type, status, priority, favorite, created_at, updated_at"
		} else {
			filter.Sort = sf
		}
	}

	switch strings.ToLower(ctx.DefaultQuery("order", "desc")) {
	case "asc":
		filter.Desc = false
	case "desc":
		filter.Desc = true
	default:
		problems["order"] = "must be asc or desc"
	}

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		problems["page"] = "must be a positive integer"
		page = 1
	}

	pageSize, err := strconv.Atoi(ctx.DefaultQuery("pageSize", strconv.Itoa(task.DefaultPageSize)))
	if err != nil || pageSize < 1 {
		problems["pageSize"] = "must be a positive integer"
		pageSize = task.DefaultPageSize
	}
	if pageSize > task.MaxPageSize {
		pageSize = task.MaxPageSize
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	return filter, page, pageSize, problems
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	filter, page, pageSize, problems := parseListQuery(ctx, ownerID)
	if len(problems) > 0 {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{"query": problems})
		return
	}

	rctx := ctx.Request.Context()

	key := ""
	if h.cache != nil {
		version, err := h.cache.Version(rctx, cache.TasksVersionKey(ownerID))
		if err != nil {
			slog.WarnContext(rctx, "task cache version read failed", "err", err)
		} else {
			key = cache.BuildTasksListCacheKey(version, filter)
			if b, hit, err := h.cache.Get(rctx, key); err == nil && hit && json.Valid(b) {
				RespondRawJSONWithETag(ctx, http.StatusOK, b)
				return
			}
		}
	}

	items, total, err := h.repo.List(rctx, filter)
	if err != nil {
		slog.ErrorContext(rctx, "list tasks failed", "err", err)
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	body, err := json.Marshal(task.NewPage(items, total, page, pageSize))
	if err != nil {
		slog.ErrorContext(rctx, "encode task page failed", "err", err)
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	if key != "" {
		if err := h.cache.Set(rctx, key, body); err != nil {
			slog.WarnContext(rctx, "task cache write failed", "err", err)
		}
	}

	RespondRawJSONWithETag(ctx, http.StatusOK, body)
}

func (h *TasksHandler) respondRepoError(ctx *gin.Context, err error, msg string) {
	if errors.Is(err, task.ErrNotFound) {
		RespondNotFound(ctx, "Task not found")
		return
	}
	slog.ErrorContext(ctx.Request.Context(), msg, "err", err)
	RespondInternal(ctx, msg)
}

func (h *TasksHandler) GetTaskByID(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	id, ok := taskIDFrom(ctx)
	if !ok {
		return
	}

	t, err := h.repo.GetByID(ctx.Request.Context(), ownerID, id)
	if err != nil {
		h.respondRepoError(ctx, err, "Could not fetch task")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, t)
}

func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	id, ok := taskIDFrom(ctx)
	if !ok {
		return
	}

	var req task.UpdateTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.modify(ctx, ownerID, id, func(t task.Task) task.Task { return t.ApplyUpdate(req) })
}

func (h *TasksHandler) PatchTask(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	id, ok := taskIDFrom(ctx)
	if !ok {
		return
	}

	var req task.PatchTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if req.IsEmpty() {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	h.modify(ctx, ownerID, id, func(t task.Task) task.Task { return t.ApplyPatch(req) })
}

func (h *TasksHandler) modify(ctx *gin.Context, ownerID, id string, apply func(task.Task) task.Task) {
	rctx := ctx.Request.Context()

	current, err := h.repo.GetByID(rctx, ownerID, id)
	if err != nil {
		h.respondRepoError(ctx, err, "Could not update task")
		return
	}

	updated, err := h.repo.Update(rctx, apply(current))
	if err != nil {
		h.respondRepoError(ctx, err, "Could not update task")
		return
	}

	h.bumpVersion(rctx, ownerID)
	ctx.JSON(http.StatusOK, updated)
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	id, ok := taskIDFrom(ctx)
	if !ok {
		return
	}

	if err := h.repo.Delete(ctx.Request.Context(), ownerID, id); err != nil {
		h.respondRepoError(ctx, err, "Could not delete task")
		return
	}

	h.bumpVersion(ctx.Request.Context(), ownerID)
	ctx.Status(http.StatusNoContent)
}

// bumpVersion makes every cached list page of the owner unreachable.
func (h *TasksHandler) bumpVersion(ctx context.Context, ownerID string) {
	if h.cache == nil {
		return
	}
	if _, err := h.cache.Incr(ctx, cache.TasksVersionKey(ownerID)); err != nil {
		slog.WarnContext(ctx, "task cache invalidation failed", "owner_id", ownerID, "err", err)
	}
}
