package util

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/x/ansi"
)

// FormatSize returns a human-readable size string.
func FormatSize(bytes uint64) string {
	const (
		_          = iota
		kB float64 = 1 << (10 * iota)
		mB
		gB
		tB
		pB
	)

	b := float64(bytes)
	switch {
	case b >= pB:
		return fmt.Sprintf("%.2f PiB", b/pB)
	case b >= tB:
		return fmt.Sprintf("%.2f TiB", b/tB)
	case b >= gB:
		return fmt.Sprintf("%.2f GiB", b/gB)
	case b >= mB:
		return fmt.Sprintf("%.2f MiB", b/mB)
	case b >= kB:
		return fmt.Sprintf("%.2f KiB", b/kB)
	default:
		return strconv.FormatUint(bytes, 10) + " B"
	}
}

// SizeLabel renders an entry size for display: "..." while unknown and a
// "~ " prefix when the value is a lower bound or an estimate.
func SizeLabel(bytes uint64, known, approx bool) string {
	if !known {
		return "..."
	}
	if approx {
		return "~ " + FormatSize(bytes)
	}
	return FormatSize(bytes)
}

// FormatCount returns a human-readable count string.
func FormatCount(n uint64) string {
	switch {
	case n < 1000:
		return strconv.FormatUint(n, 10)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	case n < 1_000_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	default:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	}
}

// Percent returns the percentage of part relative to total.
func Percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// FormatPercent renders p with one decimal, or an empty string for an
// unknown share.
func FormatPercent(p float64, known bool) string {
	if !known {
		return ""
	}
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

// TruncateString shortens s to at most maxLen terminal cells, ending in
// "..." when there is room for it. Wide runes count as two cells.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return ansi.Truncate(s, maxLen, "")
	}
	return ansi.Truncate(s, maxLen, "...")
}
