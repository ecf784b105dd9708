package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/dirpie/internal/ui/style"
)

// HelpBind is one key and what it does.
type HelpBind struct{ Key, Desc string }

// HelpSection is a titled group of bindings.
type HelpSection struct {
	Name  string
	Binds []HelpBind
}

var markerLegend = HelpSection{Name: "Size markers", Binds: []HelpBind{
	{"...", "Not measured yet"},
	{"~", "Lower bound or estimate"},
	{"+", "Some contents could not be read"},
	{"->", "Redirected directory, not followed"},
}}

// RenderHelp renders the help overlay: sections, then the size marker legend.
func RenderHelp(theme style.Theme, sections []HelpSection, width, height int) string {
	boxWidth := min(64, width-4)

	lines := []string{theme.ModalTitle.Render("  dirpie - Keyboard Shortcuts"), ""}
	for _, sec := range append(sections[:len(sections):len(sections)], markerLegend) {
		if len(sec.Binds) == 0 {
			continue
		}
		lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(theme.Accent).Render("  "+sec.Name))
		for _, b := range sec.Binds {
			k := theme.HelpKey.Width(16).Render("    " + b.Key)
			lines = append(lines, fmt.Sprintf("%s %s", k, lipgloss.NewStyle().Foreground(theme.TextSecondary).Render(b.Desc)))
		}
		lines = append(lines, "")
	}
	lines = append(lines, theme.HelpDesc.Render("  Press ? or Esc to close"))

	box := theme.ModalStyle.Width(max(boxWidth, 0)).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
