package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/tasktrack/core/task"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) tbl() *taskTable { return repo.db.task }

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	t.ID = uuid.New().String()
	tbl.next++
	tbl.seq[t.ID] = tbl.next
	tbl.table[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string) (task.Task, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	if t, ok := tbl.table[id]; ok {
		return *t, nil
	}
	return task.Task{}, task.ErrNotFound
}

// QueryTasks returns tasks in creation order.
func (repo *taskRepository) QueryTasks(_ context.Context, filter task.QueryFilter) ([]task.Task, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	tasks := make([]task.Task, 0, len(tbl.table))
	for _, t := range tbl.table {
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tbl.seq[tasks[i].ID] < tbl.seq[tasks[j].ID]
	})
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	orig, ok := tbl.table[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	t.UserID = orig.UserID
	t.CreatedAt = orig.CreatedAt
	tbl.table[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) MarkOverdueNotified(_ context.Context, id string) error {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	t, ok := tbl.table[id]
	if !ok {
		return task.ErrNotFound
	}
	t.OverdueNotificationSent = true
	return nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, id string) error {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.table[id]; !ok {
		return task.ErrNotFound
	}
	delete(tbl.table, id)
	delete(tbl.seq, id)
	return nil
}
