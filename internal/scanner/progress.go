package scanner

import (
	"sync"

	"github.com/sadopc/dirpie/internal/model"
)

// Tracker counts jobs for the live progress epoch. Every transition checks
// the job's epoch against the live one in the same critical section as the
// counter update, so a job from a superseded epoch can never move the
// counters of the current one.
type Tracker struct {
	mu    sync.Mutex
	epoch uint64
	p     model.Progress
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset makes epoch live and zeroes every counter.
func (t *Tracker) Reset(epoch uint64) {
	t.mu.Lock()
	t.epoch = epoch
	t.p = model.Progress{}
	t.mu.Unlock()
}

// Epoch returns the live epoch.
func (t *Tracker) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Enqueued counts a newly queued job.
func (t *Tracker) Enqueued(job model.Job) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job.Epoch != t.epoch {
		return false
	}
	t.p.Total++
	t.p.Queued++
	if job.Kind == model.JobExact {
		t.p.ExactTotal++
	}
	return true
}

// Started moves a job from queued to active.
func (t *Tracker) Started(job model.Job) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job.Epoch != t.epoch {
		return false
	}
	if t.p.Queued > 0 {
		t.p.Queued--
	}
	t.p.Active++
	return true
}

// Finished moves a job from active to done, whether it ran or was dropped.
func (t *Tracker) Finished(job model.Job) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job.Epoch != t.epoch {
		return false
	}
	if t.p.Active > 0 {
		t.p.Active--
	}
	t.p.Done++
	if job.Kind == model.JobExact {
		t.p.ExactDone++
	}
	return true
}

// Snapshot returns a copy of the counters.
func (t *Tracker) Snapshot() model.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}
