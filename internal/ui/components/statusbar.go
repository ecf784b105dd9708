package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/ui/style"
	"github.com/sadopc/dirpie/internal/util"
)

// StatusInfo holds the current state for the status bar.
type StatusInfo struct {
	ItemCount   int
	MarkedCount int
	MarkedSize  uint64
	Sort        model.SortConfig
	ReadOnly    bool
	Message     string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(theme style.Theme, info StatusInfo, width int) string {
	if info.Message != "" {
		line := " " + lipgloss.NewStyle().Foreground(theme.Warning).Bold(true).Render(info.Message)
		return theme.StatusBarStyle.Width(width).Render(line)
	}

	parts := []string{fmt.Sprintf("%d items", info.ItemCount), "sort: " + sortLabel(info.Sort)}
	if info.MarkedCount > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
			Render(fmt.Sprintf("* %d marked (%s)", info.MarkedCount, util.FormatSize(info.MarkedSize))))
	}
	left := " " + strings.Join(parts, " | ")

	hints := []struct{ key, desc string }{
		{"?", "help"},
		{"r", "rescan"},
	}
	if !info.ReadOnly {
		hints = append(hints, struct{ key, desc string }{"d", "delete"})
	}
	hints = append(hints, struct{ key, desc string }{"q", "quit"})

	var rightParts []string
	for _, h := range hints {
		rightParts = append(rightParts, theme.HelpKey.Render(h.key)+theme.HelpDesc.Render(" "+h.desc))
	}
	right := strings.Join(rightParts, "  ") + " "

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return theme.StatusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func sortLabel(cfg model.SortConfig) string {
	name := "size"
	if cfg.Field == model.SortByName {
		name = "name"
	}
	if cfg.Order == model.SortAsc {
		return name + " ↑"
	}
	return name + " ↓"
}

// RenderTabBar renders the view tabs.
func RenderTabBar(theme style.Theme, activeView int, width int) string {
	tabs := []string{"List", "Treemap"}

	var tabLine []string
	for i, tab := range tabs {
		label := fmt.Sprintf(" %d %s ", i+1, tab)
		if i == activeView {
			tabLine = append(tabLine, theme.TabActiveStyle.Render(label))
		} else {
			tabLine = append(tabLine, theme.TabIdleStyle.Render(label))
		}
	}

	return lipgloss.NewStyle().
		Foreground(theme.TextSecondary).
		Background(theme.BgLight).
		Width(width).
		Render(" " + strings.Join(tabLine, " "))
}
