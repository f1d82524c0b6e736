package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/observability"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const taskColumns = `id, title, description, due_date, status, prev_status, priority,
	created_by, assigned_to, created_at, updated_at`

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	var prev *string

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate,
		&t.Status, &prev, &t.Priority,
		&t.CreatedBy, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return task.Task{}, err
	}

	if prev != nil {
		t.PrevStatus = task.Status(*prev)
	}
	return t, nil
}

func prevParam(t task.Task) *string {
	if t.PrevStatus == "" {
		return nil
	}
	s := string(t.PrevStatus)
	return &s
}

func (r *TasksRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *TasksRepo) CreateTx(ctx context.Context, tx pgx.Tx, t task.Task) (task.Task, error) {
	op := "tasks.create_tx"

	err := r.observe(op, func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO tasks (id, title, description, due_date, status, prev_status, priority,
				created_by, assigned_to, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			t.ID, t.Title, t.Description, t.DueDate, string(t.Status), prevParam(t),
			string(t.Priority), t.CreatedBy, t.AssignedTo, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	var t task.Task
	op := "tasks.get_by_id"

	err := r.observe(op, func() error {
		var scanErr error
		t, scanErr = scanTask(r.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	return t, nil
}

// List returns the tasks visible to requesterID (creator or assignee),
// optionally filtered and sorted.
func (r *TasksRepo) List(ctx context.Context, requesterID string, filter task.ListTasksFilter) ([]task.Task, error) {
	op := "tasks.list"

	conds := []string{"(created_by = $1 OR assigned_to = $1)"}
	args := []interface{}{requesterID}

	argsPosition := 2

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, string(*filter.Status))
		argsPosition++
	}

	if filter.Priority != nil {
		conds = append(conds, fmt.Sprintf("priority = $%d", argsPosition))
		args = append(args, string(*filter.Priority))
		argsPosition++
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(conds, " AND ")
	query += " ORDER BY " + orderClause(filter.SortBy, filter.Order)

	var rows pgx.Rows

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]task.Task, 0, 16)

	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, t)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

// orderClause maps the public sort fields onto columns. Priority sorts
// by rank, not alphabetically. Inputs are whitelisted, never
// interpolated from raw user strings.
func orderClause(sortBy, order string) string {
	dir := "ASC"
	if strings.EqualFold(order, "desc") {
		dir = "DESC"
	}

	switch sortBy {
	case "dueDate":
		return "due_date " + dir + " NULLS LAST, id ASC"
	case "priority":
		return "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END " + dir + ", id ASC"
	case "title":
		return "title " + dir + ", id ASC"
	default:
		return "created_at " + dir + ", id ASC"
	}
}

func (r *TasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	op := "tasks.update"

	err := r.observe(op, func() error {
		tag, execErr := r.pool.Exec(ctx,
			`UPDATE tasks
			 SET title = $2,
			     description = $3,
			     due_date = $4,
			     status = $5,
			     prev_status = $6,
			     priority = $7,
			     assigned_to = $8,
			     updated_at = $9
			 WHERE id = $1`,
			t.ID, t.Title, t.Description, t.DueDate, string(t.Status), prevParam(t),
			string(t.Priority), t.AssignedTo, t.UpdatedAt,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return task.ErrNotFound
		}
		return nil
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	op := "tasks.delete"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return task.ErrNotFound
		}

		return nil
	})
}
