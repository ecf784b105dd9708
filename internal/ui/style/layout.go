package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Row geometry of the list view:
// mark(2) + pct(6) + " [" + bar + "] " + name + " " + size(sizeWidth).
const (
	sizeWidth   = 13
	rowOverhead = 2 + 6 + 2 + 2 + 1 + sizeWidth
	chromeLines = 4 // header, tab bar, progress line, status bar
)

// Layout manages the arrangement of UI components within terminal dimensions.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the rows left for the list or treemap.
func (l Layout) ContentHeight() int {
	return max(l.Height-chromeLines, 1)
}

// ContentWidth returns the width available for the main content area.
func (l Layout) ContentWidth() int {
	return max(l.Width, 20)
}

// SizeWidth is the right-aligned size column, wide enough for "~ 1023.99 MiB".
func (l Layout) SizeWidth() int { return sizeWidth }

// BarWidth returns the width of the share bar in the list view.
func (l Layout) BarWidth() int {
	return min(max(l.ContentWidth()-rowOverhead, 5), 40)
}

// NameWidth returns the width available for entry names.
func (l Layout) NameWidth() int {
	return max(l.ContentWidth()-rowOverhead-l.BarWidth(), 8)
}

// FullWidth pads s with spaces to exactly width visible cells. Wider input
// is returned unchanged.
func FullWidth(s string, width int) string {
	visLen := lipgloss.Width(s)
	if visLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visLen)
}
