package timer

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// LongBreakEvery is the number of completed work phases per long break.
const LongBreakEvery = 4

// Config is the part of the user configuration the state machine reads.
// Key bindings live here so that no key is compiled into the machine.
type Config struct {
	Working    time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration

	Pause key.Binding
	Skip  key.Binding
	Quit  key.Binding
}

// DefaultConfig mirrors the defaults of the config file loader.
func DefaultConfig() Config {
	return Config{
		Working:    25 * time.Minute,
		ShortBreak: 5 * time.Minute,
		LongBreak:  10 * time.Minute,
		Pause:      Bind("pause/resume", "p"),
		Skip:       Bind("skip break", "s"),
		Quit:       Bind("quit", "q", "ctrl+c"),
	}
}

// Bind builds a binding for keys, labelled in help with the first one.
func Bind(desc string, keys ...string) key.Binding {
	if len(keys) == 0 {
		return key.NewBinding(key.WithDisabled())
	}
	label := keys[0]
	if label == " " {
		label = "space"
	}
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// WorkingMinutes is the length recorded for a completed work phase.
func (c Config) WorkingMinutes() int {
	return int(c.Working / time.Minute)
}

// BreakAfter selects the break that follows the completed-th work phase
// of the day (1-indexed).
func (c Config) BreakAfter(completed int) time.Duration {
	if completed > 0 && completed%LongBreakEvery == 0 {
		return c.LongBreak
	}
	return c.ShortBreak
}

// Handles reports whether msg matches one of the timer's bindings.
func (c Config) Handles(msg tea.KeyMsg) bool {
	return key.Matches(msg, c.Pause, c.Skip, c.Quit)
}
