package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomodoro/internal/timer"
)

// timerView draws the countdown. It holds no timer state of its own; every
// frame is rendered from a timer.Snapshot.
type timerView struct {
	cfg    timer.Config
	width  int
	height int

	bars map[string]progress.Model
}

func newTimerView(cfg timer.Config) timerView {
	bars := make(map[string]progress.Model, len(phaseColors))
	for name, color := range phaseColors {
		bars[name] = progress.New(progress.WithSolidFill(color), progress.WithoutPercentage())
	}
	return timerView{cfg: cfg, bars: bars}
}

func (t *timerView) setSize(w, h int) {
	t.width = w
	t.height = h
	barWidth := max(w-12, 10)
	for name, bar := range t.bars {
		bar.Width = barWidth
		t.bars[name] = bar
	}
}

func (t timerView) view(snap timer.Snapshot) string {
	w := max(t.width-4, 20)

	var clock, label, bar string
	switch snap.Kind {
	case timer.PhasePaused:
		clock = clockPausedStyle.Render("Paused")
		label = clockPausedStyle.Render(fmt.Sprintf("PAUSED  %s %s left", strings.ToLower(snap.Resume.String()), formatClock(snap.Remaining)))
		bar = t.bars["paused"].ViewAs(snap.Ratio)
	case timer.PhaseOnBreak:
		clock = clockBreakStyle.Render(formatClock(snap.Remaining))
		label = clockBreakStyle.Render(breakLabel(snap.Target, t.cfg))
		bar = t.bars["break"].ViewAs(snap.Ratio)
	default:
		clock = clockWorkStyle.Render(formatClock(snap.Remaining))
		label = clockWorkStyle.Render(snap.Kind.String())
		bar = t.bars["work"].ViewAs(snap.Ratio)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Pomodoro"),
		"",
		clock,
		label,
		"",
		bar,
		"",
		t.renderCycle(snap),
		"",
		mutedStyle.Render(fmt.Sprintf("work %s  short break %s  long break %s",
			formatMinutes(t.cfg.Working), formatMinutes(t.cfg.ShortBreak), formatMinutes(t.cfg.LongBreak))),
	)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", t.renderHints(snap)),
	)
}

func breakLabel(target time.Duration, cfg timer.Config) string {
	if cfg.LongBreak != cfg.ShortBreak && target == cfg.LongBreak {
		return "LONG BREAK"
	}
	return "BREAK"
}

// renderCycle shows where the day is within the current long-break cycle.
func (t timerView) renderCycle(snap timer.Snapshot) string {
	done := snap.CompletedToday % timer.LongBreakEvery
	if done == 0 && snap.CompletedToday > 0 && snap.Kind != timer.PhaseRunning {
		done = timer.LongBreakEvery
	}

	var parts []string
	for i := 0; i < timer.LongBreakEvery; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && snap.Kind == timer.PhaseRunning:
			parts = append(parts, clockWorkStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %s today", pluralize(snap.CompletedToday, "pomodoro")))
	return strings.Join(parts, " ") + counter
}

func (t timerView) renderHints(snap timer.Snapshot) string {
	bindings := []key.Binding{t.cfg.Pause}
	if snap.Kind == timer.PhaseOnBreak {
		bindings = append(bindings, t.cfg.Skip)
	}
	bindings = append(bindings, t.cfg.Quit)

	var hints []string
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return mutedStyle.Render(strings.Join(hints, "  "))
}
