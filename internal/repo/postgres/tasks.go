package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/taskdeck/internal/domain/task"
	"github.com/geocoder89/taskdeck/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, task_id, owner_id, title, description, type, status, priority, favorite, created_at, updated_at`

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func scanTask(row pgx.Row, extra ...any) (task.Task, error) {
	var t task.Task

	dest := []any{
		&t.ID,
		&t.TaskID,
		&t.OwnerID,
		&t.Title,
		&t.Description,
		&t.Type,
		&t.Status,
		&t.Priority,
		&t.Favorite,
		&t.CreatedAt,
		&t.UpdatedAt,
	}

	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsInvalidText(err) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.prom.ObserveDB("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks (`+taskColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			t.ID, t.TaskID, t.OwnerID, t.Title, t.Description, t.Type, t.Status, t.Priority, t.Favorite, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, ownerID, id string) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB("tasks.get_by_id", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID,
		))
		return err
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// orderExpr maps a sort field onto SQL. Status and priority sort by board
// rank rather than alphabetically.
func orderExpr(f task.SortField) string {
	switch f {
	case task.SortTaskID:
		return "task_id"
	case task.SortTitle:
		return "LOWER(title)"
	case task.SortType:
		return "LOWER(type)"
	case task.SortStatus:
		return rankCase("status", statusStrings())
	case task.SortPriority:
		return rankCase("priority", priorityStrings())
	case task.SortFavorite:
		return "favorite"
	case task.SortUpdatedAt:
		return "updated_at"
	default:
		return "created_at"
	}
}

func rankCase(col string, values []string) string {
	var b strings.Builder

	b.WriteString("CASE " + col)
	for i, v := range values {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", v, i)
	}
	b.WriteString(" END")
	return b.String()
}

func statusStrings() []string {
	out := make([]string, 0, len(task.Statuses))
	for _, s := range task.Statuses {
		out = append(out, string(s))
	}
	return out
}

func priorityStrings() []string {
	out := make([]string, 0, len(task.Priorities))
	for _, p := range task.Priorities {
		out = append(out, string(p))
	}
	return out
}

func (r *TasksRepo) List(ctx context.Context, filter task.ListFilter) ([]task.Task, int, error) {
	var conds []string
	var args []any

	argsPosition := 1

	conds = append(conds, fmt.Sprintf("owner_id = $%d", argsPosition))
	args = append(args, filter.OwnerID)
	argsPosition++

	if len(filter.Statuses) > 0 {
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", argsPosition))
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		argsPosition++
	}

	if len(filter.Priorities) > 0 {
		conds = append(conds, fmt.Sprintf("priority = ANY($%d)", argsPosition))
		priorities := make([]string, 0, len(filter.Priorities))
		for _, p := range filter.Priorities {
			priorities = append(priorities, string(p))
		}
		args = append(args, priorities)
		argsPosition++
	}

	if filter.Type != nil {
		conds = append(conds, fmt.Sprintf("LOWER(type) = LOWER($%d)", argsPosition))
		args = append(args, *filter.Type)
		argsPosition++
	}

	if filter.Favorite != nil {
		conds = append(conds, fmt.Sprintf("favorite = $%d", argsPosition))
		args = append(args, *filter.Favorite)
		argsPosition++
	}

	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR task_id ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+escapeLike(*filter.Query)+"%")
		argsPosition++
	}

	dir := "ASC"
	if filter.Desc {
		dir = "DESC"
	}

	sortField := filter.Sort
	if !sortField.IsValid() {
		sortField = task.SortCreatedAt
	}

	query := `SELECT ` + taskColumns + `, COUNT(*) OVER() AS total FROM tasks WHERE ` + strings.Join(conds, " AND ")

	// id breaks ties so pages never overlap
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d", orderExpr(sortField), dir, argsPosition, argsPosition+1)
	args = append(args, filter.Limit, filter.Offset)

	output := make([]task.Task, 0, filter.Limit)
	total := 0

	err := r.prom.ObserveDB("tasks.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n int
			t, err := scanTask(rows, &n)
			if err != nil {
				return err
			}
			total = n
			output = append(output, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	// an offset past the end returns no rows and therefore no window count
	if len(output) == 0 && filter.Offset > 0 {
		err = r.prom.ObserveDB("tasks.count", func() error {
			countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + strings.Join(conds, " AND ")
			return r.pool.QueryRow(ctx, countQuery, args[:len(args)-2]...).Scan(&total)
		})
		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *TasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	var out task.Task

	err := r.prom.ObserveDB("tasks.update", func() error {
		var err error
		out, err = scanTask(r.pool.QueryRow(ctx,
			`UPDATE tasks
				SET task_id = $3,
					title = $4,
					description = $5,
					type = $6,
					status = $7,
					priority = $8,
					favorite = $9,
					updated_at = $10
			WHERE id = $1 AND owner_id = $2
			RETURNING `+taskColumns,
			t.ID, t.OwnerID, t.TaskID, t.Title, t.Description, t.Type, t.Status, t.Priority, t.Favorite, t.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return task.Task{}, err
	}
	return out, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	return r.prom.ObserveDB("tasks.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
		if IsInvalidText(err) {
			return task.ErrNotFound
		}
		if err != nil {
			return err
		}
		// if no rows were deleted the task is missing or owned by someone else
		if tag.RowsAffected() == 0 {
			return task.ErrNotFound
		}
		return nil
	})
}
