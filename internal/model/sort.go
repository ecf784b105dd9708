package model

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// SortField defines what to sort by.
type SortField int

const (
	SortBySize SortField = iota
	SortByName
)

// SortOrder defines ascending or descending.
type SortOrder int

const (
	SortDesc SortOrder = iota
	SortAsc
)

// SortConfig holds sort preferences.
type SortConfig struct {
	Field SortField
	Order SortOrder
	// DirsFirst keeps directories before files regardless of sort.
	DirsFirst bool
}

// DefaultSort returns the default sort config (size descending).
func DefaultSort() SortConfig {
	return SortConfig{
		Field: SortBySize,
		Order: SortDesc,
	}
}

// SortEntries sorts entries in place according to cfg. Entries without a
// value sort as zero bytes. The sort is stable.
func SortEntries(entries []Entry, cfg SortConfig) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]

		if cfg.DirsFirst && a.IsDir != b.IsDir {
			return a.IsDir
		}

		// Swapping for descending order keeps the comparison a strict weak
		// ordering: equal items still compare false.
		if cfg.Order == SortDesc {
			a, b = b, a
		}

		switch cfg.Field {
		case SortByName:
			return natural.Less(strings.ToLower(a.Name), strings.ToLower(b.Name))
		default:
			return knownBytes(a) < knownBytes(b)
		}
	})
}

func knownBytes(e *Entry) uint64 {
	if !e.HasValue {
		return 0
	}
	return e.Bytes
}
