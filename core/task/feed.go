package task

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

const defaultPollInterval = 30 * time.Second

// Subscribe streams snapshots of the tasks of userID (every student when empty).
// The first snapshot is sent right away; later ones only when the collection changed.
// The channel is closed once ctx is done.
func (svc *Service) Subscribe(ctx context.Context, userID string, interval time.Duration) <-chan Snapshot {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	out := make(chan Snapshot)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last []Task
		first := true
		for {
			tasks, err := svc.repo.QueryTasks(ctx, QueryFilter{UserID: userID})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				svc.logger.Warn(fmt.Sprintf("task feed: querying tasks: %v", err), err)
			} else if first || !reflect.DeepEqual(last, tasks) {
				first = false
				last = tasks
				snap := Snapshot{UserID: userID, Tasks: tasks, TakenAt: svc.Now()}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// WatchOverdue runs the overdue scan on every snapshot of all tasks until ctx is done.
// Unchanged collections are re-scanned on each tick so that tasks become overdue at day boundaries.
func (svc *Service) WatchOverdue(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	feed := svc.Subscribe(ctx, "", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var latest Snapshot
	for {
		select {
		case snap, ok := <-feed:
			if !ok {
				return
			}
			latest = snap
		case <-ticker.C:
			latest.TakenAt = svc.Now()
		case <-ctx.Done():
			return
		}
		// writes already started are allowed to finish
		if n := svc.scanSnapshot(context.Background(), latest); n > 0 {
			svc.logger.Info(fmt.Sprintf("overdue watcher: %d notification(s) sent", n))
		}
	}
}
