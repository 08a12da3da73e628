// Package tui renders the pomodoro timer and routes events from the event
// source into the timer state machine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomodoro/internal/event"
	"github.com/sadopc/pomodoro/internal/export"
	"github.com/sadopc/pomodoro/internal/model"
	"github.com/sadopc/pomodoro/internal/store"
	"github.com/sadopc/pomodoro/internal/timer"
)

// EventSource is the consumer side of event.Source.
type EventSource interface {
	Next(ctx context.Context) (event.Event, error)
}

// SessionStore is the persistence the App needs.
type SessionStore interface {
	InsertSession(durationMinutes int, tag, note string) (*model.Session, error)
	UpdateSession(id int64, tag, note string) error
	ListSessions(f store.SessionFilter) ([]model.Session, error)
	DailyCounts(from, to time.Time) ([]model.DailyCount, error)
}

// Options wires an App.
type Options struct {
	Config  timer.Config
	Store   SessionStore
	Source  EventSource
	Machine *timer.Machine
	Logger  *slog.Logger
}

// App is the root Bubble Tea model. It is the single consumer of the event
// source and the only writer of the timer machine.
type App struct {
	cfg     timer.Config
	store   SessionStore
	source  EventSource
	machine *timer.Machine
	logger  *slog.Logger

	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	timer   timerView
	history historyModel
	stats   statsModel

	help      help.Model
	status    string
	statusErr bool
	unsaved   int

	quitting bool
	err      error
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	machine := opts.Machine
	if machine == nil {
		machine = timer.New(0, nil)
	}

	return App{
		cfg:     opts.Config,
		store:   opts.Store,
		source:  opts.Source,
		machine: machine,
		logger:  logger.With("component", "tui"),
		timer:   newTimerView(opts.Config),
		history: newHistoryModel(machine.Sessions()),
		stats:   newStatsModel(opts.Store),
		help:    h,
	}
}

func (a App) Init() tea.Cmd {
	return waitForEvent(a.source)
}

// waitForEvent blocks on the event source and hands one event to Update.
func waitForEvent(src EventSource) tea.Cmd {
	return func() tea.Msg {
		ev, err := src.Next(context.Background())
		if err != nil {
			return sourceErrMsg{err: err}
		}
		return eventMsg{ev: ev}
	}
}

// Err reports the fatal input error that ended the program, if any.
func (a App) Err() error {
	return a.err
}

// Unsaved is the number of completed sessions that could not be persisted.
func (a App) Unsaved() int {
	return a.unsaved
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		return a, nil

	case eventMsg:
		next, cmd := a.handleEvent(msg.ev)
		app := next.(App)
		if app.quitting {
			return app, cmd
		}
		return app, tea.Batch(cmd, waitForEvent(app.source))

	case sourceErrMsg:
		if a.quitting {
			return a, nil
		}
		a.err = msg.err
		a.quitting = true
		a.logger.Error("event source failed", "err", msg.err)
		return a, tea.Quit

	case tea.KeyMsg:
		return a.handleKey(msg)

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case sessionEditedMsg:
		return a.editSession(msg)

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.logger.Info("export written", "path", msg.path)
		return a, nil

	case statsDataMsg:
		if msg.err != nil {
			a.logger.Warn("load stats", "err", msg.err)
		}
		var cmd tea.Cmd
		a.stats, cmd = a.stats.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) handleEvent(ev event.Event) (tea.Model, tea.Cmd) {
	if ev.Kind == event.KindInput {
		return a.handleKey(tea.KeyMsg(ev.Key))
	}
	return a.advance(ev)
}

// handleKey routes a key press. Timer bindings win over navigation unless
// a form or the export picker is capturing input; ctrl+c always reaches the
// timer so that the program can be left from anywhere.
func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	capturing := a.exportPicking || a.isFormActive()
	if msg.Type == tea.KeyCtrlC || (!capturing && a.cfg.Handles(msg)) {
		return a.advance(event.Input(tea.Key(msg)))
	}

	if a.exportPicking {
		return a.updateExportPicker(msg)
	}
	if a.isFormActive() {
		return a.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, keys.Export):
		a.exportPicking = true
		a.exportCursor = 0
		return a, nil
	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil
	case key.Matches(msg, keys.Tab1):
		return a.switchView(viewTimer)
	case key.Matches(msg, keys.Tab2):
		return a.switchView(viewHistory)
	case key.Matches(msg, keys.Tab3):
		return a.switchView(viewStats)
	case key.Matches(msg, keys.Tab):
		return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
	}

	return a.updateActiveView(msg)
}

// advance feeds one event to the machine and performs the effect it asks for.
func (a App) advance(ev event.Event) (tea.Model, tea.Cmd) {
	effect := a.machine.Advance(ev, a.cfg)

	switch effect.Kind {
	case timer.EffectCompletedWork:
		return a.persistSession(effect.DurationMinutes)
	case timer.EffectQuit:
		a.quitting = true
		a.logger.Info("quit", "completed_today", a.machine.CompletedToday, "unsaved", a.unsaved)
		return a, tea.Quit
	}
	return a, nil
}

// persistSession records a finished work phase. A failed write leaves the
// counter advanced; the session is only missing from the history.
func (a App) persistSession(minutes int) (tea.Model, tea.Cmd) {
	sess, err := a.store.InsertSession(minutes, "", "")
	if err != nil {
		a.unsaved++
		a.setStatus(fmt.Sprintf("Could not save session: %v", err), true)
		a.logger.Error("persist session", "minutes", minutes, "err", err)
		return a, nil
	}

	a.machine.RecordSession(*sess)
	a.history.setSessions(a.machine.Sessions())
	a.setStatus(fmt.Sprintf("Pomodoro #%d done, take a break", a.machine.CompletedToday), false)
	a.logger.Info("session saved", "id", sess.ID, "minutes", minutes, "completed_today", a.machine.CompletedToday)

	if a.activeView == viewStats {
		return a, a.stats.refresh()
	}
	return a, nil
}

func (a App) editSession(msg sessionEditedMsg) (tea.Model, tea.Cmd) {
	if err := a.store.UpdateSession(msg.id, msg.tag, msg.note); err != nil {
		a.setStatus(fmt.Sprintf("Could not update session: %v", err), true)
		a.logger.Error("update session", "id", msg.id, "err", err)
		return a, nil
	}
	a.machine.UpdateSession(msg.id, msg.tag, msg.note)
	a.history.setSessions(a.machine.Sessions())
	a.setStatus(fmt.Sprintf("Session #%d updated", msg.id), false)
	return a, nil
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusErr = isError
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	switch v {
	case viewHistory:
		a.history.setSessions(a.machine.Sessions())
	case viewStats:
		return a, a.stats.refresh()
	}
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewHistory && a.history.formActive
}

func (a App) View() string {
	if a.quitting {
		return ""
	}
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view(a.machine.Snapshot(a.cfg))
	case viewHistory:
		content = a.history.view()
	case viewStats:
		content = a.stats.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("pomodoro")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(helpKeys{timer: a.cfg, nav: keys})

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	warning := ""
	if a.unsaved > 0 {
		warning = warningStyle.Render(fmt.Sprintf(" ! %s not saved", pluralize(a.unsaved, "session")))
	}

	left := footerStyle.Render(helpView)
	right := status + warning

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export Format"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	src := a.store
	return func() tea.Msg {
		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path, err := exportSessions(src, format, home, time.Now())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

// exportSessions writes every stored session to dir and returns the file path.
func exportSessions(src SessionStore, format int, dir string, now time.Time) (string, error) {
	sessions, err := src.ListSessions(store.SessionFilter{})
	if err != nil {
		return "", err
	}

	dateStr := now.Format("2006-01-02")
	switch format {
	case 0:
		path := filepath.Join(dir, fmt.Sprintf("pomodoro-export-%s.csv", dateStr))
		return path, export.ToCSV(sessions, path)
	case 1:
		path := filepath.Join(dir, fmt.Sprintf("pomodoro-export-%s.json", dateStr))
		return path, export.ToJSON(sessions, path)
	}
	return "", errors.New("unknown export format")
}
