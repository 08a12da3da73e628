package tui

import (
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomodoro/internal/model"
)

// countSource is the read side the stats view needs.
type countSource interface {
	DailyCounts(from, to time.Time) ([]model.DailyCount, error)
}

// statsModel charts completed sessions per day, seven days at a time.
type statsModel struct {
	store  countSource
	width  int
	height int

	counts []model.DailyCount
	offset int // 7-day blocks back from today (0 = current)
	err    error
	now    func() time.Time

	chart barchart.Model
}

func newStatsModel(s countSource) statsModel {
	return statsModel{
		store: s,
		now:   time.Now,
		chart: barchart.New(60, 12),
	}
}

func (r *statsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

func (r statsModel) refresh() tea.Cmd {
	from, to := r.dateRange()
	src, offset := r.store, r.offset
	return func() tea.Msg {
		counts, err := src.DailyCounts(from, to)
		return statsDataMsg{offset: offset, counts: counts, err: err}
	}
}

// dateRange returns local midnights bounding the seven days shown.
func (r statsModel) dateRange() (time.Time, time.Time) {
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	end := today.AddDate(0, 0, 1-7*r.offset)
	return end.AddDate(0, 0, -7), end
}

func (r statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		// Replies for a week the user already paged away from are stale.
		if msg.offset != r.offset {
			return r, nil
		}
		r.counts = msg.counts
		r.err = msg.err
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
				return r, r.refresh()
			}
		}
	}
	return r, nil
}

func (r *statsModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	byDate := make(map[string]model.DailyCount, len(r.counts))
	for _, c := range r.counts {
		byDate[c.Date] = c
	}

	from, to := r.dateRange()
	style := lipgloss.NewStyle().Foreground(colorWork)
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		c := byDate[d.Format("2006-01-02")]
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: []barchart.BarValue{{Name: "sessions", Value: float64(c.Count), Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r statsModel) totals() (sessions, minutes int) {
	for _, c := range r.counts {
		sessions += c.Count
		minutes += c.Minutes
	}
	return sessions, minutes
}

func (r statsModel) view() string {
	w := max(r.width-4, 20)

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("Stats"), "  ", dateLabel)

	var body string
	if r.err != nil {
		body = errorStyle.Render(fmt.Sprintf("  Could not load stats: %v", r.err))
	} else {
		sessions, minutes := r.totals()
		body = lipgloss.JoinVertical(lipgloss.Left,
			r.chart.View(),
			"",
			fmt.Sprintf("  %s, %.1fh focused", pluralize(sessions, "session"), float64(minutes)/60),
		)
	}

	nav := mutedStyle.Render("  ←/→: older/newer week")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", nav),
	)
}
