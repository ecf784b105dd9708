package scanner

import (
	"sync"

	"github.com/sadopc/dirpie/internal/model"
)

// Queue is the FIFO of pending jobs shared by the workers.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []model.Job
	closed bool
}

func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends job and wakes one waiting worker. Jobs pushed after Close are
// discarded.
func (q *Queue) Push(job model.Job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until a job is available or the queue is closed. It returns
// false once closed, even if jobs remain.
func (q *Queue) Pop() (model.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && len(q.jobs) == 0 {
		q.cond.Wait()
	}
	if q.closed {
		return model.Job{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = model.Job{}
	q.jobs = q.jobs[1:]
	return job, true
}

// Clear drops every pending job and returns how many were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	q.jobs = nil
	return n
}

// Close wakes every waiting worker and makes Pop return false.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.jobs = nil
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
