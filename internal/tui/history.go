package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/pomodoro/internal/model"
)

// historyModel lists today's sessions and edits their tag and note.
type historyModel struct {
	width  int
	height int

	sessions []model.Session
	table    table.Model

	formActive bool
	form       *huh.Form
	editingID  int64

	// Form field pointers (survive value copies)
	formTag  *string
	formNote *string
}

var historyColumns = []table.Column{
	{Title: "#", Width: 4},
	{Title: "Time", Width: 6},
	{Title: "Ago", Width: 16},
	{Title: "Min", Width: 4},
	{Title: "Tag", Width: 14},
	{Title: "Note", Width: 30},
}

func newHistoryModel(sessions []model.Session) historyModel {
	tag, note := "", ""
	t := table.New(
		table.WithColumns(historyColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(colorMuted).Bold(true)
	styles.Selected = selectedItemStyle
	t.SetStyles(styles)

	h := historyModel{
		table:    t,
		formTag:  &tag,
		formNote: &note,
	}
	h.setSessions(sessions)
	return h
}

func (h *historyModel) setSize(w, hgt int) {
	h.width = w
	h.height = hgt
	h.table.SetHeight(max(hgt-8, 3))
	h.table.SetWidth(max(w-8, 20))
}

// setSessions replaces the rows, newest first, keeping the cursor in range.
func (h *historyModel) setSessions(sessions []model.Session) {
	h.sessions = make([]model.Session, len(sessions))
	for i, s := range sessions {
		h.sessions[len(sessions)-1-i] = s
	}

	rows := make([]table.Row, len(h.sessions))
	for i, s := range h.sessions {
		rows[i] = table.Row{
			strconv.FormatInt(s.ID, 10),
			s.CreatedAt.Local().Format("15:04"),
			humanize.Time(s.CreatedAt),
			strconv.Itoa(s.DurationMinutes),
			s.Tag,
			s.Note,
		}
	}
	h.table.SetRows(rows)
	// An empty table leaves the cursor at -1.
	if c := h.table.Cursor(); len(rows) > 0 && (c < 0 || c >= len(rows)) {
		h.table.SetCursor(min(max(c, 0), len(rows)-1))
	}
}

func (h historyModel) selected() (model.Session, bool) {
	c := h.table.Cursor()
	if c < 0 || c >= len(h.sessions) {
		return model.Session{}, false
	}
	return h.sessions[c], true
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, keys.Enter) {
			return h.showEditForm()
		}
		var cmd tea.Cmd
		h.table, cmd = h.table.Update(msg)
		return h, cmd
	}
	return h, nil
}

func (h historyModel) showEditForm() (historyModel, tea.Cmd) {
	s, ok := h.selected()
	if !ok {
		return h, nil
	}
	*h.formTag = s.Tag
	*h.formNote = s.Note
	h.editingID = s.ID

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Tag").CharLimit(32).Value(h.formTag),
			huh.NewInput().Title("Note").CharLimit(200).Value(h.formNote),
		),
	).WithShowHelp(true).WithShowErrors(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) updateForm(msg tea.Msg) (historyModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	switch h.form.State {
	case huh.StateCompleted:
		h.formActive = false
		edited := sessionEditedMsg{id: h.editingID, tag: *h.formTag, note: *h.formNote}
		return h, func() tea.Msg { return edited }
	case huh.StateAborted:
		h.formActive = false
		h.form = nil
		return h, nil
	}
	return h, cmd
}

func (h historyModel) view() string {
	w := max(h.width-4, 20)

	if h.formActive && h.form != nil {
		title := titleStyle.Render(fmt.Sprintf("Edit session #%d", h.editingID))
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", h.form.View()),
		)
	}

	title := titleStyle.Render("Today")
	if len(h.sessions) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No sessions yet. Finish a work phase to record one."),
		))
	}

	total := 0
	for _, s := range h.sessions {
		total += s.DurationMinutes
	}
	summary := mutedStyle.Render(fmt.Sprintf("%s, %d minutes", pluralize(len(h.sessions), "session"), total))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", summary),
		"",
		h.table.View(),
		"",
		mutedStyle.Render("  ↑/↓: select  enter: edit tag/note"),
	))
}
