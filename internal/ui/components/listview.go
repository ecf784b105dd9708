package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/ui/style"
	"github.com/sadopc/dirpie/internal/util"
)

// ListView renders the entries of the viewed directory, one per row.
type ListView struct {
	Theme   style.Theme
	Layout  style.Layout
	Entries []model.Entry
	// Sum is the total the percentages are relative to.
	Sum    uint64
	Cursor int
	Offset int
	Marked map[string]bool
}

// Render renders the visible window of rows.
func (lv *ListView) Render() string {
	width := lv.Layout.ContentWidth()
	height := lv.Layout.ContentHeight()

	if len(lv.Entries) == 0 {
		empty := lipgloss.NewStyle().Foreground(lv.Theme.TextMuted).Render("  (empty directory)")
		lines := []string{style.FullWidth(empty, width)}
		for len(lines) < height {
			lines = append(lines, strings.Repeat(" ", width))
		}
		return strings.Join(lines, "\n")
	}

	end := min(lv.Offset+height, len(lv.Entries))
	lines := make([]string, 0, height)
	for i := lv.Offset; i < end; i++ {
		e := lv.Entries[i]
		lines = append(lines, lv.renderRow(e, i == lv.Cursor, lv.Marked[e.Path], width))
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func (lv *ListView) renderRow(e model.Entry, selected, marked bool, width int) string {
	t := lv.Theme
	var pct float64
	if e.HasValue {
		pct = util.Percent(e.Bytes, lv.Sum)
	}

	pctStr := ""
	if e.HasValue {
		pctStr = fmt.Sprintf("%5.1f%%", pct)
	}
	bar := t.BarGradient(lv.Layout.BarWidth(), pct/100, !e.HasValue)

	name := e.Name
	if e.IsDir {
		name += "/"
	}
	name = util.TruncateString(name, lv.Layout.NameWidth()-3)

	indicator := "  "
	switch {
	case selected && marked:
		indicator = t.MarkedIndicator.Render("*") + t.CursorIndicator.Render(">")
	case selected:
		indicator = t.CursorIndicator.Render(" >")
	case marked:
		indicator = t.MarkedIndicator.Render("* ")
	}

	nameStyled := t.FileName.Render(name)
	if e.IsDir {
		nameStyled = t.DirName.Render(name)
	}
	nameStyled += Marker(t, e)

	sizeStyle := t.SizeText
	switch {
	case !e.HasValue:
		sizeStyle = t.PendingText
	case e.Approx():
		sizeStyle = t.ApproxText
	}
	sizeStyled := sizeStyle.Width(lv.Layout.SizeWidth()).
		Render(util.SizeLabel(e.Bytes, e.HasValue, e.Approx()))

	row := fmt.Sprintf("%s%s [%s] %s %s",
		indicator, t.PercentText.Render(pctStr), bar, nameStyled, sizeStyled)
	row = style.FullWidth(row, width)

	if selected {
		return t.SelectedRow.Width(width).Render(row)
	}
	return row
}

// Marker returns the short suffix flagging an entry: " +" when part of
// its subtree could not be read, " ->" for a redirected directory.
func Marker(t style.Theme, e model.Entry) string {
	switch {
	case e.Reparse:
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render(" ->")
	case e.Incomplete:
		return t.ErrorText.Render(" +")
	}
	return ""
}

// EnsureVisible adjusts Offset so the cursor row is on screen.
func (lv *ListView) EnsureVisible() {
	height := lv.Layout.ContentHeight()
	if lv.Cursor < lv.Offset {
		lv.Offset = lv.Cursor
	}
	if lv.Cursor >= lv.Offset+height {
		lv.Offset = lv.Cursor - height + 1
	}
	lv.Offset = max(lv.Offset, 0)
}
