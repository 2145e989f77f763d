package task

import (
	"strings"
)

type SortField string

const (
	SortTaskID    SortField = "task_id"
	SortTitle     SortField = "title"
	SortType      SortField = "type"
	SortStatus    SortField = "status"
	SortPriority  SortField = "priority"
	SortFavorite  SortField = "favorite"
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
)

func (f SortField) IsValid() bool {
	switch f {
	case SortTaskID, SortTitle, SortType, SortStatus, SortPriority, SortFavorite, SortCreatedAt, SortUpdatedAt:
		return true
	default:
		return false
	}
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// with pointers if optional, it will be nil
type ListFilter struct {
	OwnerID    string
	Statuses   []Status
	Priorities []Priority
	Type       *string
	Favorite   *bool
	Query      *string
	Sort       SortField
	Desc       bool
	Limit      int
	Offset     int
}

// Matches reports whether t passes every predicate of the filter except
// paging. Repositories that cannot push filtering down use it directly.
func (f ListFilter) Matches(t Task) bool {
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}

	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}

	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}

	if f.Type != nil && !strings.EqualFold(t.Type, *f.Type) {
		return false
	}

	if f.Favorite != nil && t.Favorite != *f.Favorite {
		return false
	}

	if f.Query != nil {
		q := strings.ToLower(*f.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.TaskID), q) {
			return false
		}
	}

	return true
}

// Compare orders a before b (negative), after (positive) or equal (0) by the
// filter's sort column, then by id so paging is stable.
func (f ListFilter) Compare(a, b Task) int {
	c := compareBy(f.sortField(), a, b)

	if f.Desc {
		c = -c
	}
	if c != 0 {
		return c
	}

	return strings.Compare(a.ID, b.ID)
}

func (f ListFilter) sortField() SortField {
	if f.Sort.IsValid() {
		return f.Sort
	}
	return SortCreatedAt
}

func compareBy(field SortField, a, b Task) int {
	switch field {
	case SortTaskID:
		return strings.Compare(a.TaskID, b.TaskID)
	case SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortType:
		return strings.Compare(strings.ToLower(a.Type), strings.ToLower(b.Type))
	case SortStatus:
		return a.Status.Rank() - b.Status.Rank()
	case SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortFavorite:
		return boolRank(a.Favorite) - boolRank(b.Favorite)
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []Priority, p Priority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

type Page struct {
	Items      []Task `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

func NewPage(items []Task, total, page, pageSize int) Page {
	if items == nil {
		items = []Task{}
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
