package sqlstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tasktrack/core/task"
)

const taskColumns = `id, user_id, title, description, due_date, priority, completed, completed_at,
	overdue_notification_sent, created_at, updated_at`

type taskRow struct {
	ID                      string     `db:"id"`
	UserID                  string     `db:"user_id"`
	Title                   string     `db:"title"`
	Description             string     `db:"description"`
	DueDate                 int64      `db:"due_date"`
	Priority                string     `db:"priority"`
	Completed               bool       `db:"completed"`
	CompletedAt             null.Int64 `db:"completed_at"`
	OverdueNotificationSent bool       `db:"overdue_notification_sent"`
	CreatedAt               int64      `db:"created_at"`
	UpdatedAt               int64      `db:"updated_at"`
	Seq                     int64      `db:"seq"`
}

func toTaskRow(t task.Task) taskRow {
	return taskRow{
		ID:                      t.ID,
		UserID:                  t.UserID,
		Title:                   t.Title,
		Description:             t.Description,
		DueDate:                 millis(t.DueDate),
		Priority:                string(t.Priority),
		Completed:               t.Completed,
		CompletedAt:             nullMillis(t.CompletedAt),
		OverdueNotificationSent: t.OverdueNotificationSent,
		CreatedAt:               millis(t.CreatedAt),
		UpdatedAt:               millis(t.UpdatedAt),
	}
}

func (r taskRow) task() task.Task {
	return task.Task{
		ID:                      r.ID,
		UserID:                  r.UserID,
		Title:                   r.Title,
		Description:             r.Description,
		DueDate:                 fromMillis(r.DueDate),
		Priority:                task.Priority(r.Priority),
		Completed:               r.Completed,
		CompletedAt:             fromNullMillis(r.CompletedAt),
		OverdueNotificationSent: r.OverdueNotificationSent,
		CreatedAt:               fromMillis(r.CreatedAt),
		UpdatedAt:               fromMillis(r.UpdatedAt),
	}
}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.ID = uuid.New().String()
	row := toTaskRow(t)
	seq, err := nextSequence(ctx, repo.db, "task_rows")
	if err != nil {
		return task.Task{}, err
	}
	row.Seq = seq

	q := `INSERT INTO tasks (` + taskColumns + `, seq) VALUES (
		:id, :user_id, :title, :description, :due_date, :priority, :completed, :completed_at,
		:overdue_notification_sent, :created_at, :updated_at, :seq)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return row.task(), nil
}

func (repo *taskRepository) GetTask(ctx context.Context, id string) (task.Task, error) {
	var row taskRow
	q := repo.db.Rebind("SELECT " + taskColumns + " FROM tasks WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return task.Task{}, trapNoRowsErr(err, task.ErrNotFound, "getting task")
	}
	return row.task(), nil
}

// QueryTasks returns tasks in creation order.
func (repo *taskRepository) QueryTasks(ctx context.Context, filter task.QueryFilter) ([]task.Task, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Completed != nil {
		where = append(where, "completed = ?")
		args = append(args, *filter.Completed)
	}

	q := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at ASC, seq ASC"

	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	q := `UPDATE tasks SET
		title = :title, description = :description, due_date = :due_date, priority = :priority,
		completed = :completed, completed_at = :completed_at,
		overdue_notification_sent = :overdue_notification_sent, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toTaskRow(t))
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return repo.GetTask(ctx, t.ID)
}

func (repo *taskRepository) exec(ctx context.Context, msg, q string, args ...interface{}) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (repo *taskRepository) MarkOverdueNotified(ctx context.Context, id string) error {
	return repo.exec(ctx, "marking task overdue notified", "UPDATE tasks SET overdue_notification_sent = ? WHERE id = ?", true, id)
}

func (repo *taskRepository) DeleteTask(ctx context.Context, id string) error {
	return repo.exec(ctx, "deleting task", "DELETE FROM tasks WHERE id = ?", id)
}
