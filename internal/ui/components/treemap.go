package components

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/ui/style"
	"github.com/sadopc/dirpie/internal/util"
)

type rect struct {
	x, y, w, h int
}

// treemapItem is one tile. entry is nil for the "other" tile that folds the
// smallest entries together.
type treemapItem struct {
	entry *model.Entry
	size  uint64
}

// RenderTreemap lays out the known, non-empty entries as a squarified
// treemap. Approximate sizes are drawn in the warning color.
func RenderTreemap(theme style.Theme, entries []model.Entry, width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}
	if len(entries) == 0 {
		return lipgloss.NewStyle().Foreground(theme.TextMuted).Render("  (empty directory)")
	}

	var items []treemapItem
	var totalSize uint64
	pending := 0
	for i := range entries {
		e := &entries[i]
		if !e.HasValue {
			pending++
			continue
		}
		if e.Bytes > 0 {
			items = append(items, treemapItem{entry: e, size: e.Bytes})
			totalSize += e.Bytes
		}
	}

	if len(items) == 0 {
		msg := "  (no items with size)"
		if pending > 0 {
			msg = fmt.Sprintf("  (waiting for %d entries)", pending)
		}
		return lipgloss.NewStyle().Foreground(theme.TextMuted).Render(msg)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].size > items[j].size })

	maxItems := max((width*height)/8, 5)
	if len(items) > maxItems {
		var otherSize uint64
		for _, it := range items[maxItems-1:] {
			otherSize += it.size
		}
		items = append(items[:maxItems-1], treemapItem{size: otherSize})
	}

	grid := make([][]rune, height)
	colorGrid := make([][]lipgloss.Color, height)
	for y := 0; y < height; y++ {
		grid[y] = make([]rune, width)
		colorGrid[y] = make([]lipgloss.Color, width)
		for x := 0; x < width; x++ {
			grid[y][x] = ' '
			colorGrid[y][x] = theme.BgDark
		}
	}

	rects := squarify(items, totalSize, rect{0, 0, width, height})

	for i, r := range rects {
		if r.w <= 0 || r.h <= 0 {
			continue
		}
		it := items[i]

		color := theme.Muted
		label := fmt.Sprintf("other (%s)", util.FormatSize(it.size))
		if e := it.entry; e != nil {
			switch {
			case e.Approx():
				color = theme.Warning
			case e.IsDir:
				color = theme.Accent
			default:
				color = theme.GradientColor(float64(it.size) / float64(totalSize))
			}
			name := e.Name
			if e.IsDir {
				name += "/"
			}
			label = name + " " + util.SizeLabel(e.Bytes, true, e.Approx())
		}

		fillRect(grid, colorGrid, r, color)
		drawBorder(grid, r)
		placeLabel(grid, r, label)
	}

	lines := make([]string, 0, height)
	for y := 0; y < height; y++ {
		var line strings.Builder
		for x := 0; x < width; x++ {
			ch := grid[y][x]
			if ch == ' ' {
				line.WriteString(lipgloss.NewStyle().Background(colorGrid[y][x]).Render(" "))
			} else {
				line.WriteString(lipgloss.NewStyle().Foreground(theme.TextPrimary).Render(string(ch)))
			}
		}
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}

func squarify(items []treemapItem, totalSize uint64, bounds rect) []rect {
	result := make([]rect, len(items))
	if len(items) > 0 && bounds.w > 0 && bounds.h > 0 {
		bisect(items, result, 0, len(items), totalSize, bounds)
	}
	return result
}

// bisect splits items[start:end] at the prefix whose tile has the aspect
// ratio closest to square, then recurses into both halves.
func bisect(items []treemapItem, result []rect, start, end int, totalSize uint64, bounds rect) {
	if start >= end || bounds.w <= 0 || bounds.h <= 0 || totalSize == 0 {
		return
	}
	if end-start == 1 {
		result[start] = bounds
		return
	}

	horizontal := bounds.w >= bounds.h
	cut, leftSize := start+1, items[start].size
	bestAspect := math.Inf(1)
	var running uint64
	for i := start; i < end-1; i++ {
		running += items[i].size
		if a := aspect(bounds, float64(running)/float64(totalSize), horizontal); a < bestAspect {
			bestAspect, cut, leftSize = a, i+1, running
		}
	}

	left, right := splitRect(bounds, float64(leftSize)/float64(totalSize), horizontal)
	bisect(items, result, start, cut, leftSize, left)
	bisect(items, result, cut, end, totalSize-leftSize, right)
}

func aspect(bounds rect, fraction float64, horizontal bool) float64 {
	w, h := float64(bounds.w), float64(bounds.h)
	if horizontal {
		w *= fraction
	} else {
		h *= fraction
	}
	if w > h {
		return w / h
	}
	return h / w
}

// splitRect cuts bounds at fraction along its long side, leaving at least
// one cell on each side.
func splitRect(bounds rect, fraction float64, horizontal bool) (rect, rect) {
	if horizontal {
		x := min(max(int(fraction*float64(bounds.w)), 1), bounds.w-1)
		return rect{bounds.x, bounds.y, x, bounds.h},
			rect{bounds.x + x, bounds.y, bounds.w - x, bounds.h}
	}
	y := min(max(int(fraction*float64(bounds.h)), 1), bounds.h-1)
	return rect{bounds.x, bounds.y, bounds.w, y},
		rect{bounds.x, bounds.y + y, bounds.w, bounds.h - y}
}

func fillRect(grid [][]rune, colorGrid [][]lipgloss.Color, r rect, color lipgloss.Color) {
	for y := r.y; y < r.y+r.h && y < len(grid); y++ {
		for x := r.x; x < r.x+r.w && x < len(grid[y]); x++ {
			grid[y][x] = ' '
			colorGrid[y][x] = color
		}
	}
}

func setCell(grid [][]rune, x, y int, ch rune) {
	if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) {
		grid[y][x] = ch
	}
}

func drawBorder(grid [][]rune, r rect) {
	if r.w < 2 || r.h < 2 {
		return
	}
	right, bottom := r.x+r.w-1, r.y+r.h-1
	for x := r.x + 1; x < right; x++ {
		setCell(grid, x, r.y, '─')
		setCell(grid, x, bottom, '─')
	}
	for y := r.y + 1; y < bottom; y++ {
		setCell(grid, r.x, y, '│')
		setCell(grid, right, y, '│')
	}
	setCell(grid, r.x, r.y, '┌')
	setCell(grid, right, r.y, '┐')
	setCell(grid, r.x, bottom, '└')
	setCell(grid, right, bottom, '┘')
}

// placeLabel writes label on the first inner row of r, truncated to fit.
func placeLabel(grid [][]rune, r rect, label string) {
	innerW := r.w - 2
	if innerW <= 0 || r.h-2 <= 0 {
		return
	}
	for i, ch := range []rune(util.TruncateString(label, innerW)) {
		setCell(grid, r.x+1+i, r.y+1, ch)
	}
}
