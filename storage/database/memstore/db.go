// Package memstore is a process local store. It backs the test suites and the "memory" engine.
package memstore

import (
	"sync"

	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

type (
	DB struct {
		user         *userTable
		task         *taskTable
		notification *notificationTable
		assessment   *assessmentTable
		counter      *counterTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.Profile
		seq   map[string]int // insertion order
		next  int
	}

	taskTable struct {
		sync.RWMutex
		table map[string]*task.Task
		seq   map[string]int
		next  int
	}

	notificationTable struct {
		sync.RWMutex
		rows []notification.Notification // insertion order
	}

	assessmentTable struct {
		sync.RWMutex
		table map[string]assessment.Assessment // by user ID
	}

	counterTable struct {
		sync.Mutex
		table map[string]int64
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.Profile), seq: make(map[string]int)},
		task:         &taskTable{table: make(map[string]*task.Task), seq: make(map[string]int)},
		notification: &notificationTable{},
		assessment:   &assessmentTable{table: make(map[string]assessment.Assessment)},
		counter:      &counterTable{table: make(map[string]int64)},
	}
}

// SeedCounter sets the current value of a sequence.
func (db *DB) SeedCounter(name string, value int64) {
	db.counter.Lock()
	defer db.counter.Unlock()
	db.counter.table[name] = value
}

// Reset empties every table.
func (db *DB) Reset() {
	*db = *Open()
}

func (db *DB) nextSequence(name string) int64 {
	db.counter.Lock()
	defer db.counter.Unlock()
	db.counter.table[name]++
	return db.counter.table[name]
}
