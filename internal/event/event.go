// Package event merges keyboard input and clock ticks into one ordered stream.
package event

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrInput indicates the keyboard stream failed and no further input can arrive.
var ErrInput = errors.New("input stream failed")

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("event source closed")

// Kind identifies the producer of an Event.
type Kind int

const (
	KindInput Kind = iota
	KindTick
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindTick:
		return "tick"
	}
	return "unknown"
}

// Event is either a decoded keypress or a clock tick.
type Event struct {
	Kind    Kind
	Key     tea.Key       // set for KindInput
	Elapsed time.Duration // set for KindTick
}

// Input wraps a keypress.
func Input(k tea.Key) Event {
	return Event{Kind: KindInput, Key: k}
}

// Tick wraps the time elapsed since the previous tick.
func Tick(d time.Duration) Event {
	return Event{Kind: KindTick, Elapsed: d}
}
