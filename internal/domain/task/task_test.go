package task

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestNewFromCreateRequestDefaults(t *testing.T) {
	got := NewFromCreateRequest("owner-1", CreateTaskRequest{Title: "  Write docs  "})

	if !strings.HasPrefix(got.TaskID, TaskIDPrefix) || len(got.TaskID) != len(TaskIDPrefix)+4 {
		t.Fatalf("unexpected task id %q", got.TaskID)
	}
	if got.Title != "Write docs" {
		t.Fatalf("title not trimmed: %q", got.Title)
	}
	if got.Status != StatusTodo || got.Priority != PriorityMedium || got.Type != DefaultType {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if got.OwnerID != "owner-1" || got.ID == "" {
		t.Fatalf("unexpected ids: %+v", got)
	}
}

func TestApplyPatchOnlyTouchesGivenFields(t *testing.T) {
	orig := NewFromCreateRequest("owner-1", CreateTaskRequest{
		TaskID:   "TASK-0001",
		Title:    "Fix login",
		Type:     "Bug",
		Status:   StatusBacklog,
		Priority: PriorityHigh,
	})

	fav := true
	done := StatusDone
	got := orig.ApplyPatch(PatchTaskRequest{Favorite: &fav, Status: &done})

	if !got.Favorite || got.Status != StatusDone {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.Title != orig.Title || got.Priority != orig.Priority || got.TaskID != orig.TaskID {
		t.Fatalf("patch touched other fields: %+v", got)
	}
}

func TestStatusAndPriorityRanks(t *testing.T) {
	if !StatusInProgress.IsValid() || Status("In progress").IsValid() {
		t.Fatalf("status validation is case and space sensitive")
	}
	if StatusBacklog.Rank() >= StatusDone.Rank() {
		t.Fatalf("backlog should rank before done")
	}
	if PriorityLow.Rank() >= PriorityHigh.Rank() {
		t.Fatalf("low should rank before high")
	}
	if Priority("Urgent").IsValid() {
		t.Fatalf("unexpected priority accepted")
	}
}

func sampleTasks() []Task {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	return []Task{
		{ID: "a", OwnerID: "o1", TaskID: "TASK-0003", Title: "Alpha", Type: "Bug", Status: StatusDone, Priority: PriorityLow, CreatedAt: base},
		{ID: "b", OwnerID: "o1", TaskID: "TASK-0001", Title: "beta", Type: "Feature", Status: StatusBacklog, Priority: PriorityHigh, Favorite: true, CreatedAt: base.Add(time.Hour)},
		{ID: "c", OwnerID: "o1", TaskID: "TASK-0002", Title: "Gamma", Type: "Feature", Status: StatusInProgress, Priority: PriorityMedium, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", OwnerID: "o2", TaskID: "TASK-0004", Title: "Delta", Type: "Bug", Status: StatusTodo, Priority: PriorityHigh, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestListFilterMatches(t *testing.T) {
	bug := "bug"
	fav := true
	q := "task-000"
	alp := "ALP"

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{name: "owner scope", filter: ListFilter{OwnerID: "o1"}, want: []string{"a", "b", "c"}},
		{name: "statuses", filter: ListFilter{OwnerID: "o1", Statuses: []Status{StatusDone, StatusBacklog}}, want: []string{"a", "b"}},
		{name: "priorities", filter: ListFilter{Priorities: []Priority{PriorityHigh}}, want: []string{"b", "d"}},
		{name: "type case insensitive", filter: ListFilter{Type: &bug}, want: []string{"a", "d"}},
		{name: "favorite", filter: ListFilter{Favorite: &fav}, want: []string{"b"}},
		{name: "query task id", filter: ListFilter{OwnerID: "o2", Query: &q}, want: []string{"d"}},
		{name: "query title", filter: ListFilter{Query: &alp}, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Task
			for _, task := range sampleTasks() {
				if tt.filter.Matches(task) {
					got = append(got, task)
				}
			}
			if !slices.Equal(ids(got), tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestListFilterCompare(t *testing.T) {
	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{name: "default created_at asc", filter: ListFilter{}, want: []string{"a", "b", "c", "d"}},
		{name: "created_at desc", filter: ListFilter{Sort: SortCreatedAt, Desc: true}, want: []string{"d", "c", "b", "a"}},
		{name: "status rank", filter: ListFilter{Sort: SortStatus}, want: []string{"b", "d", "c", "a"}},
		{name: "priority desc then id", filter: ListFilter{Sort: SortPriority, Desc: true}, want: []string{"b", "d", "c", "a"}},
		{name: "title case insensitive", filter: ListFilter{Sort: SortTitle}, want: []string{"a", "b", "d", "c"}},
		{name: "task id", filter: ListFilter{Sort: SortTaskID}, want: []string{"b", "c", "a", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sampleTasks()
			slices.SortFunc(got, tt.filter.Compare)
			if !slices.Equal(ids(got), tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(nil, 21, 2, 10)

	if p.Items == nil {
		t.Fatalf("items should serialize as an empty list")
	}
	if p.TotalPages != 3 {
		t.Fatalf("total pages = %d, want 3", p.TotalPages)
	}
}
