package model

// JobKind selects between a fast capped estimate and an exact walk.
type JobKind uint8

const (
	JobCapped JobKind = iota
	JobExact
)

func (k JobKind) String() string {
	if k == JobExact {
		return "exact"
	}
	return "capped"
}

// Job is one unit of scan work. It is immutable once enqueued.
type Job struct {
	Generation uint64
	Epoch      uint64
	Path       string
	Kind       JobKind
}

// Progress is a point-in-time copy of the job counters for one epoch.
type Progress struct {
	Total      uint32
	Done       uint32
	Active     uint32
	Queued     uint32
	ExactTotal uint32
	ExactDone  uint32
}

// Running reports whether jobs of the epoch are still queued or executing.
func (p Progress) Running() bool {
	return p.Active+p.Queued > 0
}

// DoneClamped returns Done, never exceeding Total.
func (p Progress) DoneClamped() uint32 {
	if p.Total > 0 && p.Done > p.Total {
		return p.Total
	}
	return p.Done
}

// ExactDoneClamped returns ExactDone, never exceeding ExactTotal.
func (p Progress) ExactDoneClamped() uint32 {
	if p.ExactTotal > 0 && p.ExactDone > p.ExactTotal {
		return p.ExactTotal
	}
	return p.ExactDone
}

// Ratio returns done/total in [0, 1]; an epoch with no jobs is complete.
func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.DoneClamped()) / float64(p.Total)
}
