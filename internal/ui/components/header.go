package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/ui/style"
	"github.com/sadopc/dirpie/internal/util"
)

// Summary is the headline total: the sum once every entry has a value,
// prefixed with "~ " if any of them is approximate, else "Scanning...".
func Summary(snap model.Snapshot) string {
	if snap.Dir == "" {
		return ""
	}
	if snap.Known < len(snap.Entries) {
		return "Scanning..."
	}
	approx := false
	for _, e := range snap.Entries {
		if e.Approx() {
			approx = true
			break
		}
	}
	return util.SizeLabel(snap.Sum, true, approx)
}

// RenderHeader renders the title, the viewed directory and the total.
func RenderHeader(theme style.Theme, snap model.Snapshot, label string, width int) string {
	if width < 10 {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render(" dirpie")

	stats := fmt.Sprintf("%s items  %s ", util.FormatCount(uint64(len(snap.Entries))), Summary(snap))
	statsStyled := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(stats)

	titleW := lipgloss.Width(title)
	statsW := lipgloss.Width(statsStyled)

	where := snap.Dir
	if label != "" {
		where = label + ":" + where
	}
	if maxW := width - titleW - statsW - 3; maxW > 5 {
		where = truncateLeft(where, maxW)
	} else {
		where = ""
	}
	pathStyled := lipgloss.NewStyle().Foreground(theme.TextPrimary).Render("  " + where)

	gap := max(width-titleW-lipgloss.Width(pathStyled)-statsW, 1)
	line := title + pathStyled + strings.Repeat(" ", gap) + statsStyled
	return theme.HeaderStyle.Width(width).Render(line)
}

// truncateLeft keeps the tail of s, which is the informative end of a path.
func truncateLeft(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[len(runes)-maxLen:])
	}
	return "..." + string(runes[len(runes)-maxLen+3:])
}
