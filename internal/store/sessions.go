package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/pomodoro/internal/model"
)

// SessionFilter narrows ListSessions. Nil bounds are open.
type SessionFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

const sessionColumns = `id, created_at, duration_minutes, tag, note`

// InsertSession records a completed work phase. Empty tag or note are
// stored as NULL. The returned session is built from the inserted values,
// so a committed row is never reported as a failure.
func (s *Store) InsertSession(durationMinutes int, tag, note string) (*model.Session, error) {
	createdAt := s.now().UTC().Truncate(time.Second)
	now := createdAt.Format(time.RFC3339)

	var id int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`INSERT INTO sessions (created_at, duration_minutes, tag, note) VALUES (?, ?, ?, ?)`,
			now, durationMinutes, nullString(tag), nullString(note),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &model.Session{
		ID:              id,
		CreatedAt:       createdAt,
		DurationMinutes: durationMinutes,
		Tag:             tag,
		Note:            note,
	}, nil
}

func (s *Store) GetSession(id int64) (*model.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return &sess, nil
}

// UpdateSession replaces the tag and note of a session.
func (s *Store) UpdateSession(id int64, tag, note string) error {
	var affected int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`UPDATE sessions SET tag = ?, note = ? WHERE id = ?`,
			nullString(tag), nullString(note), id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update session %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update session %d: %w", id, ErrNotFound)
	}
	return nil
}

// SessionsOn returns the sessions created on day's local calendar date,
// oldest first.
func (s *Store) SessionsOn(day time.Time) ([]model.Session, error) {
	from, to := dayBounds(day)
	return s.ListSessions(SessionFilter{From: &from, To: &to})
}

// CountSessionsOn counts the sessions created on day's local calendar date.
func (s *Store) CountSessionsOn(day time.Time) (int, error) {
	from, to := dayBounds(day)
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE created_at >= ? AND created_at < ?`,
		formatTime(from), formatTime(to),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *Store) ListSessions(f SessionFilter) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		query += ` AND created_at < ?`
		args = append(args, formatTime(*f.To))
	}
	query += ` ORDER BY created_at, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DailyCounts returns one entry per local day in [from, to), including days
// without sessions.
func (s *Store) DailyCounts(from, to time.Time) ([]model.DailyCount, error) {
	from, _ = dayBounds(from)
	to, _ = dayBounds(to)
	sessions, err := s.ListSessions(SessionFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}

	byDay := make(map[string]*model.DailyCount)
	var counts []model.DailyCount
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		counts = append(counts, model.DailyCount{Date: d.Format("2006-01-02")})
	}
	for i := range counts {
		byDay[counts[i].Date] = &counts[i]
	}
	for _, sess := range sessions {
		if c, ok := byDay[sess.CreatedAt.Local().Format("2006-01-02")]; ok {
			c.Count++
			c.Minutes += sess.DurationMinutes
		}
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (model.Session, error) {
	var sess model.Session
	var createdAt string
	var tag, note sql.NullString
	if err := r.Scan(&sess.ID, &createdAt, &sess.DurationMinutes, &tag, &note); err != nil {
		return sess, err
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sess.Tag = tag.String
	sess.Note = note.String
	return sess, nil
}

// dayBounds returns local midnight of t's date and the following midnight.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.Local()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
