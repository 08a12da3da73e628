package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/pomodoro/internal/event"
	"github.com/sadopc/pomodoro/internal/model"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewHistory
	viewStats
)

var viewNames = []string{"Timer", "History", "Stats"}

// --- Messages ---

// eventMsg carries one event from the event source into Update.
type eventMsg struct {
	ev event.Event
}

// sourceErrMsg ends the event loop.
type sourceErrMsg struct {
	err error
}

type statusMsg struct {
	text    string
	isError bool
}

// sessionEditedMsg is sent when the history form is submitted.
type sessionEditedMsg struct {
	id   int64
	tag  string
	note string
}

type statsDataMsg struct {
	offset int // week the counts belong to
	counts []model.DailyCount
	err    error
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// formatClock renders a countdown as MM:SS. Minutes are not wrapped at 60.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// formatMinutes renders a duration as whole minutes, e.g. "25m".
func formatMinutes(d time.Duration) string {
	return fmt.Sprintf("%dm", int(d/time.Minute))
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
