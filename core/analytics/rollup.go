package analytics

import (
	"time"

	"github.com/trezcool/tasktrack/core/task"
)

type Rollup struct {
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	PendingTasks   int `json:"pending_tasks"`
	OverdueTasks   int `json:"overdue_tasks"`
	CompletionRate int `json:"completion_rate"`
}

func (r *Rollup) add(t task.Task, now time.Time) {
	r.TotalTasks++
	switch task.Classify(t, now) {
	case task.StatusCompleted:
		r.CompletedTasks++
	case task.StatusOverdue:
		r.OverdueTasks++
	}
}

func (r *Rollup) finish() {
	r.PendingTasks = r.TotalTasks - r.CompletedTasks
	r.CompletionRate = CompletionRate(r.CompletedTasks, r.TotalTasks)
}

// StudentRollup computes the rollup of the tasks owned by userID.
func StudentRollup(tasks []task.Task, userID string, now time.Time) Rollup {
	var r Rollup
	for _, t := range tasks {
		if t.UserID == userID {
			r.add(t, now)
		}
	}
	r.finish()
	return r
}

// SystemRollup computes the rollup of every task.
func SystemRollup(tasks []task.Task, now time.Time) Rollup {
	var r Rollup
	for _, t := range tasks {
		r.add(t, now)
	}
	r.finish()
	return r
}

// RollupsByStudent computes the rollup of every task owner in a single pass.
func RollupsByStudent(tasks []task.Task, now time.Time) map[string]Rollup {
	acc := make(map[string]*Rollup)
	for _, t := range tasks {
		r, ok := acc[t.UserID]
		if !ok {
			r = new(Rollup)
			acc[t.UserID] = r
		}
		r.add(t, now)
	}

	out := make(map[string]Rollup, len(acc))
	for uid, r := range acc {
		r.finish()
		out[uid] = *r
	}
	return out
}
