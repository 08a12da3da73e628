// Package model holds the types shared by the store, the timer and the UI.
package model

import "time"

// Session is one completed work interval.
type Session struct {
	ID              int64
	CreatedAt       time.Time
	DurationMinutes int
	Tag             string // empty when unset
	Note            string // empty when unset
}

// DailyCount is the number of sessions completed on one local day.
type DailyCount struct {
	Date    string // 2006-01-02
	Count   int
	Minutes int
}
