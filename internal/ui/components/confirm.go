package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/dirpie/internal/ui/style"
	"github.com/sadopc/dirpie/internal/util"
)

// ConfirmItem is an entry pending deletion.
type ConfirmItem struct {
	Name  string
	Path  string
	Size  uint64
	Known bool
	// Approx marks a size that is a lower bound or estimate.
	Approx bool
	IsDir  bool
}

// RenderConfirmDialog renders the deletion confirmation modal.
func RenderConfirmDialog(theme style.Theme, items []ConfirmItem, width, height int) string {
	boxWidth := min(60, width-4)

	var total uint64
	approx := false
	for _, item := range items {
		total += item.Size
		approx = approx || item.Approx || !item.Known
	}

	muted := lipgloss.NewStyle().Foreground(theme.TextMuted)
	lines := []string{
		theme.ModalTitle.Render("  Delete Confirmation"),
		lipgloss.NewStyle().Foreground(theme.Warning).
			Render(fmt.Sprintf("  The following %d item(s) will be permanently deleted:", len(items))),
		"",
	}

	shown := min(len(items), 10)
	for _, item := range items[:shown] {
		kind := "  F "
		if item.IsDir {
			kind = "  D "
		}
		name := util.TruncateString(item.Name, boxWidth-24)
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Error).Render(kind+name)+
			muted.Render("  "+util.SizeLabel(item.Size, item.Known, item.Approx)))
	}
	if len(items) > shown {
		lines = append(lines, muted.Render(fmt.Sprintf("  ... and %d more", len(items)-shown)))
	}

	lines = append(lines, "",
		lipgloss.NewStyle().Bold(true).Foreground(theme.TextPrimary).
			Render("  Total: "+util.SizeLabel(total, true, approx)),
		"")

	text := lipgloss.NewStyle().Foreground(theme.TextPrimary)
	lines = append(lines, text.Render("  Press ")+
		lipgloss.NewStyle().Bold(true).Foreground(theme.Success).Render("y")+
		text.Render(" to confirm, ")+
		lipgloss.NewStyle().Bold(true).Foreground(theme.Error).Render("n/esc")+
		text.Render(" to cancel"))

	box := theme.ModalStyle.Width(max(boxWidth, 0)).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
