package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/ui/style"
)

// ProgressText describes the job counters and skip totals of a snapshot:
// "scanning 3/7 (active 2, queued 2, exact 0/1) | known 4/6 | skipped access=1 path=0 other=0 reparse=0".
func ProgressText(snap model.Snapshot) string {
	p := snap.Progress
	var head string
	switch snap.State {
	case model.StateEnumerating:
		head = "listing"
	case model.StateScanning:
		head = fmt.Sprintf("scanning %d/%d (active %d, queued %d, exact %d/%d)",
			p.DoneClamped(), p.Total, p.Active, p.Queued, p.ExactDoneClamped(), p.ExactTotal)
	case model.StateSettled:
		head = "done"
		if p.ExactTotal > 0 {
			head = fmt.Sprintf("done (exact %d/%d)", p.ExactDoneClamped(), p.ExactTotal)
		}
	default:
		return "idle"
	}

	tot := snap.Totals
	parts := []string{
		head,
		fmt.Sprintf("known %d/%d", snap.Known, len(snap.Entries)),
		fmt.Sprintf("skipped access=%d path=%d other=%d reparse=%d",
			tot.SkippedAccess, tot.SkippedPath, tot.SkippedOther, tot.SkippedReparse),
	}
	line := strings.Join(parts, " | ")
	if tot.Incomplete {
		line += "  (incomplete)"
	}
	return line
}

// RenderProgressLine renders ProgressText with a progress bar, prefixed by
// spin while work is outstanding. A snapshot status replaces the counters.
func RenderProgressLine(theme style.Theme, snap model.Snapshot, spin string, width int) string {
	if snap.Status != "" {
		line := " " + theme.ErrorText.Bold(true).Render(snap.Status)
		return lipgloss.NewStyle().Background(theme.BgLight).Width(width).Render(line)
	}

	prefix := " "
	if snap.State == model.StateScanning || snap.State == model.StateEnumerating {
		prefix = " " + spin + " "
	}
	text := lipgloss.NewStyle().Foreground(theme.TextSecondary).Render(ProgressText(snap))

	barW := width - lipgloss.Width(prefix) - lipgloss.Width(text) - 3
	bar := ""
	if barW >= 8 && snap.State == model.StateScanning {
		bar = "  " + theme.BarGradient(min(barW, 30), snap.Progress.Ratio(), false)
	}

	line := style.FullWidth(prefix+text+bar, width)
	return lipgloss.NewStyle().Background(theme.BgLight).Width(width).Render(line)
}
