package model

import "time"

// ErrorKind classifies a non-fatal filesystem failure met during a walk.
type ErrorKind uint8

const (
	ErrOther ErrorKind = iota
	ErrAccessDenied
	ErrPathInvalid // invalid path, missing path or path too long
	ErrReparseSkipped
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAccessDenied:
		return "access"
	case ErrPathInvalid:
		return "path"
	case ErrReparseSkipped:
		return "reparse"
	default:
		return "other"
	}
}

// WalkStats counts what a single subtree walk had to skip.
type WalkStats struct {
	SkippedAccess  uint32
	SkippedPath    uint32
	SkippedOther   uint32
	SkippedReparse uint32
	// Incomplete is set when any error or skip occurred.
	Incomplete bool
	// ReachedCap is set when the byte cap truncated the walk.
	ReachedCap bool
}

// Record counts one skipped item of the given kind and marks the walk incomplete.
func (s *WalkStats) Record(kind ErrorKind) {
	s.Incomplete = true
	switch kind {
	case ErrAccessDenied:
		s.SkippedAccess++
	case ErrPathInvalid:
		s.SkippedPath++
	case ErrReparseSkipped:
		s.SkippedReparse++
	default:
		s.SkippedOther++
	}
}

// Add folds other into s. ReachedCap is not aggregated.
func (s *WalkStats) Add(other WalkStats) {
	s.SkippedAccess += other.SkippedAccess
	s.SkippedPath += other.SkippedPath
	s.SkippedOther += other.SkippedOther
	s.SkippedReparse += other.SkippedReparse
	s.Incomplete = s.Incomplete || other.Incomplete
}

// Skipped returns the total number of skipped items.
func (s WalkStats) Skipped() uint32 {
	return s.SkippedAccess + s.SkippedPath + s.SkippedOther + s.SkippedReparse
}

// SizeInfo is the cached size result for one path.
type SizeInfo struct {
	Bytes uint64
	// Exact is true only for an uncapped walk that was not truncated.
	Exact      bool
	Incomplete bool
	Stats      WalkStats
	Tick       time.Time
}

// Terminal reports whether info is the most trusted state a path can reach.
func (info SizeInfo) Terminal() bool {
	return info.Exact && !info.Incomplete
}

// Uncertain reports whether info is an estimate that also missed part of
// the tree.
func (info SizeInfo) Uncertain() bool {
	return info.Incomplete && !info.Exact
}

// Entry is one immediate child of the directory being viewed.
type Entry struct {
	Name       string
	Path       string
	Bytes      uint64
	HasValue   bool
	Exact      bool
	Incomplete bool
	IsDir      bool
	// Reparse marks a redirected directory that is shown but never walked.
	Reparse bool
	Stats   WalkStats
}

// Approx reports whether the entry's size is an estimate or a lower bound.
func (e Entry) Approx() bool {
	return !e.Exact || e.Incomplete
}

// Apply copies a cached result onto the entry.
func (e *Entry) Apply(info SizeInfo) {
	e.Bytes = info.Bytes
	e.HasValue = true
	e.Exact = info.Exact
	e.Incomplete = info.Incomplete
	e.Stats = info.Stats
}
