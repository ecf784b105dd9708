package model

// State is the orchestrator's view lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateEnumerating
	StateScanning
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateEnumerating:
		return "enumerating"
	case StateScanning:
		return "scanning"
	case StateSettled:
		return "settled"
	default:
		return "idle"
	}
}

// Snapshot is a read-only copy of the current view handed to renderers.
type Snapshot struct {
	Generation uint64
	Dir        string
	Entries    []Entry
	// Sum is the total of all known entry sizes.
	Sum uint64
	// Totals aggregates the walk stats of every entry.
	Totals   WalkStats
	Known    int
	Exact    int
	Progress Progress
	State    State
	// Status carries a message such as a root enumeration failure.
	Status string
}

// Percent returns entry i's share of Sum, or 0 when unknown.
func (s Snapshot) Percent(i int) float64 {
	if i < 0 || i >= len(s.Entries) || s.Sum == 0 || !s.Entries[i].HasValue {
		return 0
	}
	return float64(s.Entries[i].Bytes) * 100 / float64(s.Sum)
}

// Settled reports whether the view has no queued or running work left.
func (s Snapshot) Settled() bool {
	return s.State == StateSettled
}

// Find returns the index of the entry with the given path, or -1.
func (s Snapshot) Find(path string) int {
	for i := range s.Entries {
		if s.Entries[i].Path == path {
			return i
		}
	}
	return -1
}
