package ui

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/ops"
	"github.com/sadopc/dirpie/internal/pathops"
	"github.com/sadopc/dirpie/internal/ui/components"
	"github.com/sadopc/dirpie/internal/ui/style"
	"github.com/sadopc/dirpie/internal/util"
)

// ViewMode represents the current view.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewTreemap
)

// AppState represents the application state.
type AppState int

const (
	StateBrowsing AppState = iota
	StateConfirmDelete
	StateHelp
	StateExporting
)

// Engine is the scan engine the UI drives. *scanner.Engine satisfies it.
type Engine interface {
	StartAnalyze(dir string) error
	Rescan() error
	Invalidate(path string)
	Snapshot() model.Snapshot
	Generation() uint64
	Refreshes() <-chan uint64
	Done() <-chan struct{}
	Shutdown()
}

// RefreshMsg tells the UI the engine state changed for a generation.
type RefreshMsg struct {
	Generation uint64
}

// AnalyzeDoneMsg is sent when StartAnalyze returns.
type AnalyzeDoneMsg struct {
	Dir string
	Err error
}

// DeleteDoneMsg is sent when deletion completes.
type DeleteDoneMsg struct {
	Deleted []string
	Freed   uint64
	Errors  []error
}

// ExportDoneMsg is sent when export completes.
type ExportDoneMsg struct {
	Path string
	Err  error
}

type engineStoppedMsg struct{}

// Options configures an App.
type Options struct {
	// StartDir is analyzed when the program starts.
	StartDir string
	// Label prefixes the directory in the header, e.g. user@host.
	Label      string
	ExportPath string
	Version    string
	// ReadOnly disables delete, for remote filesystems.
	ReadOnly bool
	// OnNavigate is called with every directory handed to the engine.
	OnNavigate func(dir string)
	Logger     *zap.Logger
}

// App is the root Bubble Tea model.
type App struct {
	engine Engine
	opts   Options
	log    *zap.Logger

	state    AppState
	viewMode ViewMode
	width    int
	height   int

	snap       model.Snapshot
	items      []model.Entry
	sortConfig model.SortConfig

	cursor int
	offset int
	// focus names the entry the cursor should land on once it appears,
	// the directory just left when going up.
	focus string

	marked      map[string]bool
	markedItems []components.ConfirmItem

	spinner spinner.Model
	theme   style.Theme
	keys    KeyMap
	layout  style.Layout

	statusMsg string

	nav *navigator
}

// navigator applies navigation commands to the engine in the order Update
// issued them. Commands run on their own goroutines, so one that was
// overtaken by a newer request is skipped instead of run late.
type navigator struct {
	run    sync.Mutex
	latest atomic.Uint64
}

func (n *navigator) issue() uint64 { return n.latest.Add(1) }

// do runs fn if seq is still the newest request.
func (n *navigator) do(seq uint64, fn func() error) (bool, error) {
	n.run.Lock()
	defer n.run.Unlock()
	if n.latest.Load() != seq {
		return false, nil
	}
	return true, fn()
}

// NewApp creates an App driving engine. The engine must already be started.
func NewApp(engine Engine, opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	keys := DefaultKeyMap()
	keys.Delete.SetEnabled(!opts.ReadOnly)
	return &App{
		engine:     engine,
		opts:       opts,
		log:        log,
		state:      StateBrowsing,
		viewMode:   ViewList,
		sortConfig: model.DefaultSort(),
		marked:     make(map[string]bool),
		spinner:    spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		theme:      style.DefaultTheme(),
		keys:       keys,
		nav:        &navigator{},
	}
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.waitForRefresh(), a.spinner.Tick}
	if a.opts.StartDir != "" {
		cmds = append(cmds, a.analyzeCmd(a.opts.StartDir))
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout = style.NewLayout(msg.Width, msg.Height)
		return a, nil

	case RefreshMsg:
		if msg.Generation == a.engine.Generation() {
			a.refresh()
		}
		return a, a.waitForRefresh()

	case AnalyzeDoneMsg:
		if msg.Err != nil {
			a.log.Warn("analyze failed", zap.String("dir", msg.Dir), zap.Error(msg.Err))
		}
		a.refresh()
		return a, nil

	case engineStoppedMsg:
		return a, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case DeleteDoneMsg:
		a.state = StateBrowsing
		a.clearMarks()
		switch {
		case len(msg.Errors) > 0:
			a.statusMsg = fmt.Sprintf("Delete: %d failed (%v)", len(msg.Errors), msg.Errors[0])
		case len(msg.Deleted) > 0:
			a.statusMsg = fmt.Sprintf("Deleted %d item(s), freed %s", len(msg.Deleted), util.FormatSize(msg.Freed))
		}
		if len(msg.Deleted) == 0 {
			return a, tea.ClearScreen
		}
		for _, p := range msg.Deleted {
			a.invalidateUp(p)
		}
		return a, tea.Batch(tea.ClearScreen, a.analyzeCmd(a.snap.Dir))

	case ExportDoneMsg:
		a.state = StateBrowsing
		if msg.Err != nil {
			a.statusMsg = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			a.statusMsg = fmt.Sprintf("Exported to %s", msg.Path)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		return a, a.quit()
	}

	switch a.state {
	case StateHelp:
		if key.Matches(msg, a.keys.Help) || msg.String() == "esc" {
			a.state = StateBrowsing
			return a, tea.ClearScreen
		}
		return a, nil

	case StateConfirmDelete:
		if key.Matches(msg, a.keys.ConfirmYes) {
			return a, a.executeDelete()
		}
		if key.Matches(msg, a.keys.ConfirmNo) {
			a.state = StateBrowsing
			return a, tea.ClearScreen
		}
		return a, nil

	case StateBrowsing:
		return a.handleBrowsingKey(msg)
	}

	return a, nil
}

func (a *App) handleBrowsingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.statusMsg = ""
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, a.quit()

	case key.Matches(msg, a.keys.Help):
		a.state = StateHelp
		return a, tea.ClearScreen

	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-1)
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(1)
	case key.Matches(msg, a.keys.Enter), key.Matches(msg, a.keys.Right):
		return a, a.enterDir()
	case key.Matches(msg, a.keys.Left), key.Matches(msg, a.keys.Back):
		return a, a.goUp()

	case key.Matches(msg, a.keys.ViewList):
		a.viewMode = ViewList
		return a, tea.ClearScreen
	case key.Matches(msg, a.keys.ViewTreemap):
		a.viewMode = ViewTreemap
		return a, tea.ClearScreen

	case key.Matches(msg, a.keys.SortSize):
		a.toggleSort(model.SortBySize)
	case key.Matches(msg, a.keys.SortName):
		a.toggleSort(model.SortByName)

	case key.Matches(msg, a.keys.Mark):
		if a.viewMode == ViewList {
			a.toggleMark()
		}

	case key.Matches(msg, a.keys.Delete):
		if a.viewMode == ViewList {
			a.prepareDelete()
			if a.state == StateConfirmDelete {
				return a, tea.ClearScreen
			}
		}

	case key.Matches(msg, a.keys.Export):
		return a, a.exportCmd()

	case key.Matches(msg, a.keys.Rescan):
		a.clearMarks()
		return a, a.rescanCmd()
	}

	return a, nil
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	switch a.state {
	case StateHelp:
		return components.RenderHelp(a.theme, a.keys.HelpSections(), a.width, a.height)
	case StateConfirmDelete:
		return components.RenderConfirmDialog(a.theme, a.markedItems, a.width, a.height)
	}

	header := components.RenderHeader(a.theme, a.snap, a.opts.Label, a.width)
	tabBar := components.RenderTabBar(a.theme, int(a.viewMode), a.width)
	progress := components.RenderProgressLine(a.theme, a.snap, a.spinner.View(), a.width)

	var content string
	switch a.viewMode {
	case ViewList:
		lv := &components.ListView{
			Theme:   a.theme,
			Layout:  a.layout,
			Entries: a.items,
			Sum:     a.snap.Sum,
			Cursor:  a.cursor,
			Offset:  a.offset,
			Marked:  a.marked,
		}
		lv.EnsureVisible()
		a.offset = lv.Offset
		content = lv.Render()
	case ViewTreemap:
		content = components.RenderTreemap(a.theme, a.items, a.layout.ContentWidth(), a.layout.ContentHeight())
	}

	statusBar := components.RenderStatusBar(a.theme, components.StatusInfo{
		ItemCount:   len(a.items),
		MarkedCount: len(a.marked),
		MarkedSize:  a.markedSize(),
		Sort:        a.sortConfig,
		ReadOnly:    a.opts.ReadOnly,
		Message:     a.statusMsg,
	}, a.width)

	return header + "\n" + tabBar + "\n" + content + "\n" + progress + "\n" + statusBar
}

// refresh pulls a snapshot and re-sorts it, keeping the cursor on the same
// entry when it is still present.
func (a *App) refresh() {
	var current string
	if a.cursor < len(a.items) {
		current = a.items[a.cursor].Path
	}
	dirChanged := a.snap.Dir != ""

	snap := a.engine.Snapshot()
	dirChanged = dirChanged && snap.Dir != a.snap.Dir
	a.snap = snap
	a.items = append(a.items[:0], snap.Entries...)
	model.SortEntries(a.items, a.sortConfig)

	if dirChanged {
		a.clearMarks()
		a.cursor, a.offset = 0, 0
		current = ""
	}
	if a.focus != "" {
		if i := a.indexOfName(a.focus); i >= 0 {
			a.cursor = i
			a.focus = ""
			return
		}
	}
	if current != "" {
		for i := range a.items {
			if a.items[i].Path == current {
				a.cursor = i
				return
			}
		}
	}
	a.clampCursor()
}

func (a *App) indexOfName(name string) int {
	for i := range a.items {
		if a.items[i].Name == name {
			return i
		}
	}
	return -1
}

func (a *App) moveCursor(delta int) {
	a.cursor += delta
	a.clampCursor()
}

func (a *App) clampCursor() {
	a.cursor = min(a.cursor, len(a.items)-1)
	a.cursor = max(a.cursor, 0)
}

func (a *App) enterDir() tea.Cmd {
	if a.cursor >= len(a.items) {
		return nil
	}
	e := a.items[a.cursor]
	if !e.IsDir || e.Reparse {
		return nil
	}
	a.focus = ""
	return a.analyzeCmd(e.Path)
}

func (a *App) goUp() tea.Cmd {
	dir := a.snap.Dir
	if dir == "" || pathops.IsRoot(dir) {
		return nil
	}
	parent := pathops.Parent(dir)
	if parent == dir {
		return nil
	}
	a.focus = baseName(dir)
	return a.analyzeCmd(parent)
}

func baseName(dir string) string {
	parent := pathops.Parent(dir)
	name := dir[len(parent):]
	for len(name) > 0 && (name[0] == '/' || name[0] == '\\') {
		name = name[1:]
	}
	return name
}

func (a *App) toggleSort(field model.SortField) {
	if a.sortConfig.Field == field {
		if a.sortConfig.Order == model.SortDesc {
			a.sortConfig.Order = model.SortAsc
		} else {
			a.sortConfig.Order = model.SortDesc
		}
	} else {
		a.sortConfig.Field = field
		a.sortConfig.Order = model.SortDesc
		if field == model.SortByName {
			a.sortConfig.Order = model.SortAsc
		}
	}
	var current string
	if a.cursor < len(a.items) {
		current = a.items[a.cursor].Path
	}
	model.SortEntries(a.items, a.sortConfig)
	for i := range a.items {
		if a.items[i].Path == current {
			a.cursor = i
			break
		}
	}
}

func (a *App) toggleMark() {
	if a.cursor >= len(a.items) {
		return
	}
	p := a.items[a.cursor].Path
	if a.marked[p] {
		delete(a.marked, p)
	} else {
		a.marked[p] = true
	}
	a.moveCursor(1)
}

func (a *App) clearMarks() {
	a.marked = make(map[string]bool)
}

func (a *App) markedSize() uint64 {
	var total uint64
	for _, e := range a.items {
		if a.marked[e.Path] && e.HasValue {
			total += e.Bytes
		}
	}
	return total
}

// invalidateUp forgets the cached sizes of path and every ancestor, since
// all of them shrank.
func (a *App) invalidateUp(path string) {
	for {
		a.engine.Invalidate(path)
		parent := pathops.Parent(path)
		if parent == path {
			return
		}
		path = parent
	}
}

// waitForRefresh forwards the next engine notification into the program.
func (a *App) waitForRefresh() tea.Cmd {
	refreshes, done := a.engine.Refreshes(), a.engine.Done()
	return func() tea.Msg {
		select {
		case gen := <-refreshes:
			return RefreshMsg{Generation: gen}
		case <-done:
			return engineStoppedMsg{}
		}
	}
}

func (a *App) analyzeCmd(dir string) tea.Cmd {
	if a.opts.OnNavigate != nil {
		a.opts.OnNavigate(dir)
	}
	engine, nav, seq := a.engine, a.nav, a.nav.issue()
	return func() tea.Msg {
		ran, err := nav.do(seq, func() error { return engine.StartAnalyze(dir) })
		if !ran {
			return nil
		}
		return AnalyzeDoneMsg{Dir: dir, Err: err}
	}
}

func (a *App) rescanCmd() tea.Cmd {
	engine, nav, seq, dir := a.engine, a.nav, a.nav.issue(), a.snap.Dir
	return func() tea.Msg {
		ran, err := nav.do(seq, engine.Rescan)
		if !ran {
			return nil
		}
		return AnalyzeDoneMsg{Dir: dir, Err: err}
	}
}

func (a *App) quit() tea.Cmd {
	engine := a.engine
	return tea.Sequence(func() tea.Msg {
		engine.Shutdown()
		return nil
	}, tea.Quit)
}

func (a *App) prepareDelete() {
	if a.opts.ReadOnly {
		a.statusMsg = "Delete is disabled for remote targets"
		return
	}

	var items []components.ConfirmItem
	add := func(e model.Entry) {
		items = append(items, components.ConfirmItem{
			Name:   e.Name,
			Path:   e.Path,
			Size:   e.Bytes,
			Known:  e.HasValue,
			Approx: e.HasValue && e.Approx(),
			IsDir:  e.IsDir,
		})
	}
	if len(a.marked) > 0 {
		for _, e := range a.items {
			if a.marked[e.Path] {
				add(e)
			}
		}
	} else if a.cursor < len(a.items) {
		add(a.items[a.cursor])
	}
	if len(items) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Size > items[j].Size })

	a.markedItems = items
	a.state = StateConfirmDelete
}

func (a *App) executeDelete() tea.Cmd {
	items := a.markedItems
	root := a.snap.Dir

	return func() tea.Msg {
		var msg DeleteDoneMsg
		for _, item := range items {
			freed, err := ops.Delete(item.Path, root)
			msg.Freed += freed
			if err != nil {
				msg.Errors = append(msg.Errors, err)
			} else {
				msg.Deleted = append(msg.Deleted, item.Path)
			}
		}
		return msg
	}
}

func (a *App) exportCmd() tea.Cmd {
	if a.snap.Dir == "" {
		a.statusMsg = "Nothing to export yet"
		return nil
	}

	exportPath := a.opts.ExportPath
	if exportPath == "" {
		exportPath = "dirpie-export.json"
	}
	if exportPath == "-" {
		a.statusMsg = "Export to stdout is only available with --export"
		return nil
	}

	a.state = StateExporting
	snap := a.snap
	version := a.opts.Version
	return func() tea.Msg {
		err := ops.ExportJSON(snap, exportPath, version)
		return ExportDoneMsg{Path: exportPath, Err: err}
	}
}
