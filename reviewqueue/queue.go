// Package reviewqueue implements C6: the review-task priority ladder
// and SLA deadline bookkeeping the orchestrator hands escalations to.
package reviewqueue

import (
	"sort"
	"sync"
	"time"

	"github.com/crlsmrls/modsentry/domain"
)

// Queue holds pending review tasks; Ordered() returns them by priority
// then by deadline. It is an in-memory bookkeeping structure; the
// system of record for assignment/completion lives outside the engine
// (§3.2).
type Queue struct {
	mu    sync.Mutex
	tasks []domain.ReviewTask
}

// New returns an empty review queue.
func New() *Queue { return &Queue{} }

var priorityRank = map[domain.Priority]int{
	domain.PriorityCritical: 0,
	domain.PriorityUrgent:   1,
	domain.PriorityHigh:     2,
	domain.PriorityMedium:   3,
	domain.PriorityLow:      4,
}

// Push enqueues a review task.
func (q *Queue) Push(task domain.ReviewTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// Depth returns the number of pending tasks per priority, for the
// review-queue gauge named in spec §6.
func (q *Queue) Depth() map[domain.Priority]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	depth := make(map[domain.Priority]int)
	for _, t := range q.tasks {
		depth[t.Priority]++
	}
	return depth
}

// Breached returns tasks whose SLA deadline has passed as of now.
func (q *Queue) Breached(now time.Time) []domain.ReviewTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []domain.ReviewTask
	for _, t := range q.tasks {
		if now.After(t.Deadline) {
			out = append(out, t)
		}
	}
	return out
}

// Ordered returns a snapshot of pending tasks sorted by priority rank,
// then by earliest deadline within the same priority.
func (q *Queue) Ordered() []domain.ReviewTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.ReviewTask, len(q.tasks))
	copy(out, q.tasks)

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := priorityRank[out[i].Priority], priorityRank[out[j].Priority]
		if ri != rj {
			return ri < rj
		}
		return out[i].Deadline.Before(out[j].Deadline)
	})
	return out
}

// Remove deletes the first pending task with the given content ID,
// reporting whether one was found.
func (q *Queue) Remove(contentID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.tasks {
		if t.ContentID == contentID {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return true
		}
	}
	return false
}
