package scanner

import (
	"github.com/sadopc/dirpie/internal/fsys"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/pathops"
)

// Walk sums the reported length of every file below root using an explicit
// stack, so depth is not bounded by the goroutine stack.
//
// When capBytes > 0 the walk stops as soon as the running total reaches it and
// the returned total is a lower bound. capBytes == 0 walks everything.
// Enumeration failures are recorded in the stats and the affected directory
// is skipped. Redirected directories are never descended into. The token is
// checked at every directory and every entry; on cancellation the partial
// total is returned.
func Walk(fs fsys.FS, root string, capBytes uint64, tok Token) (uint64, model.WalkStats) {
	var (
		total uint64
		stats model.WalkStats
	)

	stack := make([]string, 0, 256)
	stack = append(stack, pathops.Normalize(root))

	for len(stack) > 0 {
		if tok.Cancelled() {
			return total, stats
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fs.ReadDir(dir)
		if err != nil {
			stats.Record(fsys.Classify(err))
		}

		for _, e := range entries {
			if tok.Cancelled() {
				return total, stats
			}
			if e.Err != nil {
				stats.Record(fsys.Classify(e.Err))
				continue
			}

			switch e.Kind {
			case fsys.KindDir:
				stack = append(stack, pathops.Join(dir, e.Name))
			case fsys.KindReparse:
				stats.Record(model.ErrReparseSkipped)
			case fsys.KindFile:
				if e.Size > 0 {
					total += uint64(e.Size)
				}
				if capBytes > 0 && total >= capBytes {
					stats.ReachedCap = true
					return total, stats
				}
			}
		}
	}

	return total, stats
}
