// Package timer is the pomodoro state machine. It performs no I/O: every
// change is driven by an event, and the one outside action it needs,
// saving a finished work phase, is returned to the caller as an Effect.
package timer

import (
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pomodoro/internal/event"
	"github.com/sadopc/pomodoro/internal/model"
)

// EffectKind tells the caller what to do after Advance.
type EffectKind int

const (
	EffectNone EffectKind = iota
	// EffectCompletedWork asks the caller to persist a session.
	EffectCompletedWork
	// EffectQuit asks the caller to stop the event loop.
	EffectQuit
)

// Effect is the outcome of one Advance call.
type Effect struct {
	Kind            EffectKind
	DurationMinutes int // set for EffectCompletedWork
}

// Progress is what a renderer needs to draw the gauge.
type Progress struct {
	// Ratio is elapsed/target clamped to [0,1]; 1 while paused.
	Ratio     float64
	Remaining time.Duration
	Kind      PhaseKind
	// Resume is the kind a paused phase resumes into. Equal to Kind otherwise.
	Resume PhaseKind
	// Target is the length of the current (or resumed) phase.
	Target time.Duration
}

// Snapshot is a read-only view of the machine for one redraw.
type Snapshot struct {
	Progress
	CompletedToday int
	Sessions       []model.Session
}

// Machine owns the timer state. It is not safe for concurrent use; a single
// consumer goroutine drives it.
type Machine struct {
	Elapsed        time.Duration
	Phase          Phase
	CompletedToday int

	sessions []model.Session
}

// New starts a work phase, continuing the day's counter and history.
func New(completedToday int, sessions []model.Session) *Machine {
	return &Machine{
		Phase:          Running(),
		CompletedToday: completedToday,
		sessions:       slices.Clone(sessions),
	}
}

// Advance applies ev. Every phase has a defined reaction to every event;
// unknown keys and ticks while paused change nothing.
func (m *Machine) Advance(ev event.Event, cfg Config) Effect {
	switch ev.Kind {
	case event.KindTick:
		return m.tick(ev.Elapsed, cfg)
	case event.KindInput:
		return m.press(tea.KeyMsg(ev.Key), cfg)
	}
	return Effect{}
}

func (m *Machine) tick(d time.Duration, cfg Config) Effect {
	if d < 0 {
		d = 0
	}
	switch m.Phase.Kind {
	case PhaseRunning:
		m.Elapsed += d
		if m.Elapsed < cfg.Working {
			return Effect{}
		}
		m.CompletedToday++
		m.Elapsed = 0
		m.Phase = OnBreak(cfg.BreakAfter(m.CompletedToday))
		return Effect{Kind: EffectCompletedWork, DurationMinutes: cfg.WorkingMinutes()}

	case PhaseOnBreak:
		m.Elapsed += d
		if m.Elapsed >= m.Phase.Target {
			m.Elapsed = 0
			m.Phase = Running()
		}
	}
	return Effect{}
}

func (m *Machine) press(msg tea.KeyMsg, cfg Config) Effect {
	switch {
	case key.Matches(msg, cfg.Quit):
		return Effect{Kind: EffectQuit}
	case key.Matches(msg, cfg.Pause):
		m.TogglePause()
	case key.Matches(msg, cfg.Skip):
		m.SkipBreak()
	}
	return Effect{}
}

// TogglePause freezes the current phase or resumes the frozen one.
func (m *Machine) TogglePause() {
	if m.Phase.Kind == PhasePaused {
		m.Phase = m.Phase.Prior()
		return
	}
	m.Phase = Paused(m.Phase)
}

// SkipBreak ends a running break early. It does nothing in other phases.
func (m *Machine) SkipBreak() {
	if m.Phase.Kind != PhaseOnBreak {
		return
	}
	m.Elapsed = 0
	m.Phase = Running()
}

// Progress reports gauge values for the current phase.
func (m *Machine) Progress(cfg Config) Progress {
	target := m.Phase.target(cfg)
	remaining := target - m.Elapsed
	if remaining < 0 {
		remaining = 0
	}

	p := Progress{
		Remaining: remaining,
		Kind:      m.Phase.Kind,
		Resume:    m.Phase.Prior().Kind,
		Target:    target,
	}
	if m.Phase.Kind == PhasePaused {
		p.Ratio = 1
		return p
	}
	if target <= 0 {
		p.Ratio = 1
		return p
	}
	p.Ratio = min(max(float64(m.Elapsed)/float64(target), 0), 1)
	return p
}

// Snapshot copies out everything a renderer reads.
func (m *Machine) Snapshot(cfg Config) Snapshot {
	return Snapshot{
		Progress:       m.Progress(cfg),
		CompletedToday: m.CompletedToday,
		Sessions:       m.Sessions(),
	}
}

// Sessions returns today's persisted sessions, oldest first.
func (m *Machine) Sessions() []model.Session {
	return slices.Clone(m.sessions)
}

// RecordSession appends a session the caller has persisted.
func (m *Machine) RecordSession(s model.Session) {
	m.sessions = append(m.sessions, s)
}

// UpdateSession edits the tag and note of a recorded session. It reports
// false if no session has that id.
func (m *Machine) UpdateSession(id int64, tag, note string) bool {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions[i].Tag = tag
			m.sessions[i].Note = note
			return true
		}
	}
	return false
}
