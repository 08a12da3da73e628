package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pomodoro/internal/event"
	"github.com/sadopc/pomodoro/internal/model"
	"github.com/sadopc/pomodoro/internal/store"
	"github.com/sadopc/pomodoro/internal/timer"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeSource hands out queued events, then reports ErrClosed.
type fakeSource struct {
	events chan event.Event
}

func newFakeSource(evs ...event.Event) *fakeSource {
	f := &fakeSource{events: make(chan event.Event, len(evs)+8)}
	for _, ev := range evs {
		f.events <- ev
	}
	return f
}

func (f *fakeSource) Next(ctx context.Context) (event.Event, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-ctx.Done():
		return event.Event{}, ctx.Err()
	default:
		return event.Event{}, event.ErrClosed
	}
}

// failingStore rejects writes.
type failingStore struct {
	*store.Store
}

func (failingStore) InsertSession(int, string, string) (*model.Session, error) {
	return nil, errors.New("disk full")
}

// shortConfig finishes a work phase after two one-second ticks.
func shortConfig() timer.Config {
	cfg := timer.DefaultConfig()
	cfg.Working = 2 * time.Second
	cfg.ShortBreak = time.Second
	cfg.LongBreak = 3 * time.Second
	return cfg
}

func newTestApp(t *testing.T, s SessionStore) App {
	t.Helper()
	if s == nil {
		s = newTestStore(t)
	}
	app := NewApp(Options{
		Config: shortConfig(),
		Store:  s,
		Source: newFakeSource(),
	})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m.(App)
}

func send(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	app, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return app, cmd
}

func tick(t *testing.T, a App) (App, tea.Cmd) {
	t.Helper()
	return send(t, a, eventMsg{ev: event.Tick(time.Second)})
}

func press(t *testing.T, a App, r rune) (App, tea.Cmd) {
	t.Helper()
	return send(t, a, eventMsg{ev: keyPress(r)})
}

// keyPress builds the input event for a single printable key.
func keyPress(r rune) event.Event {
	if r == ' ' {
		return event.Input(tea.Key{Type: tea.KeySpace, Runes: []rune{' '}})
	}
	return event.Input(tea.Key{Type: tea.KeyRunes, Runes: []rune{r}})
}

// collect runs cmd, unpacking batches, and returns the messages produced.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func isQuit(cmd tea.Cmd) bool {
	for _, msg := range collect(cmd) {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

// ============================================================
// Event loop
// ============================================================

func TestInitWaitsForEvent(t *testing.T) {
	src := newFakeSource(event.Tick(time.Second))
	app := NewApp(Options{Config: shortConfig(), Store: newTestStore(t), Source: src})

	msgs := collect(app.Init())
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	em, ok := msgs[0].(eventMsg)
	if !ok || em.ev.Kind != event.KindTick {
		t.Fatalf("expected tick eventMsg, got %#v", msgs[0])
	}
}

func TestEventReArmsWait(t *testing.T) {
	app := newTestApp(t, nil)
	app.source = newFakeSource(keyPress('z'))

	_, cmd := tick(t, app)
	msgs := collect(cmd)
	found := false
	for _, msg := range msgs {
		if em, ok := msg.(eventMsg); ok && em.ev.Key.String() == "z" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the next event to be awaited, got %#v", msgs)
	}
}

func TestTickCompletesAndPersists(t *testing.T) {
	s := newTestStore(t)
	app := newTestApp(t, s)

	app, _ = tick(t, app)
	if app.machine.CompletedToday != 0 {
		t.Fatal("work phase should not be done after one tick")
	}
	app, _ = tick(t, app)

	if app.machine.CompletedToday != 1 {
		t.Fatalf("expected 1 completed, got %d", app.machine.CompletedToday)
	}
	if app.machine.Phase.Kind != timer.PhaseOnBreak {
		t.Fatalf("expected break, got %v", app.machine.Phase.Kind)
	}

	n, err := s.CountSessionsOn(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stored session, got %d", n)
	}
	if got := app.machine.Sessions(); len(got) != 1 || got[0].DurationMinutes != 0 {
		t.Fatalf("unexpected sessions %+v", got)
	}
	if len(app.history.sessions) != 1 {
		t.Fatalf("history should show the session, got %d rows", len(app.history.sessions))
	}
	if !strings.Contains(app.status, "#1") || app.statusErr {
		t.Fatalf("unexpected status %q", app.status)
	}
}

func TestPersistFailureMarksUnsaved(t *testing.T) {
	app := newTestApp(t, failingStore{newTestStore(t)})

	app, _ = tick(t, app)
	app, cmd := tick(t, app)

	if isQuit(cmd) {
		t.Fatal("a failed write must not end the program")
	}
	if app.machine.CompletedToday != 1 {
		t.Fatalf("counter should still advance, got %d", app.machine.CompletedToday)
	}
	if len(app.machine.Sessions()) != 0 {
		t.Fatal("unsaved session should not be listed")
	}
	if app.Unsaved() != 1 {
		t.Fatalf("expected 1 unsaved, got %d", app.Unsaved())
	}
	if !app.statusErr || !strings.Contains(app.status, "disk full") {
		t.Fatalf("expected error status, got %q", app.status)
	}
	if !strings.Contains(app.View(), "not saved") {
		t.Fatal("footer should warn about unsaved sessions")
	}
}

func TestQuitKeyQuits(t *testing.T) {
	app := newTestApp(t, nil)
	app, cmd := press(t, app, 'q')

	if !isQuit(cmd) {
		t.Fatal("q should quit")
	}
	if app.Err() != nil {
		t.Fatalf("user quit is not an error: %v", app.Err())
	}
	if app.View() != "" {
		t.Fatal("view should be empty after quit")
	}
}

func TestCtrlCQuitsFromExportPicker(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = press(t, app, 'x')
	if !app.exportPicking {
		t.Fatal("x should open the export picker")
	}

	_, cmd := send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyCtrlC})})
	if !isQuit(cmd) {
		t.Fatal("ctrl+c should quit from anywhere")
	}
}

func TestSourceErrorIsFatal(t *testing.T) {
	app := newTestApp(t, nil)
	err := fmt.Errorf("%w: %v", event.ErrInput, errors.New("tty gone"))

	app, cmd := send(t, app, sourceErrMsg{err: err})
	if !isQuit(cmd) {
		t.Fatal("input failure should quit")
	}
	if !errors.Is(app.Err(), event.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", app.Err())
	}
}

func TestSourceErrorAfterQuitIgnored(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = press(t, app, 'q')
	app, cmd := send(t, app, sourceErrMsg{err: event.ErrClosed})
	if cmd != nil || app.Err() != nil {
		t.Fatal("errors after quit should be ignored")
	}
}

func TestPauseKeyPauses(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = press(t, app, 'p')
	if app.machine.Phase.Kind != timer.PhasePaused {
		t.Fatalf("expected paused, got %v", app.machine.Phase.Kind)
	}
	if !strings.Contains(app.View(), "Paused") {
		t.Fatal("view should show Paused")
	}

	// Ticks while paused change nothing.
	app, _ = tick(t, app)
	app, _ = tick(t, app)
	if app.machine.CompletedToday != 0 || app.machine.Elapsed != 0 {
		t.Fatal("paused timer should not advance")
	}

	app, _ = press(t, app, 'p')
	if app.machine.Phase.Kind != timer.PhaseRunning {
		t.Fatalf("expected running after resume, got %v", app.machine.Phase.Kind)
	}
}

func TestSkipKeyEndsBreak(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = tick(t, app)
	app, _ = tick(t, app)
	if app.machine.Phase.Kind != timer.PhaseOnBreak {
		t.Fatal("expected break")
	}
	app, _ = press(t, app, 's')
	if app.machine.Phase.Kind != timer.PhaseRunning || app.machine.Elapsed != 0 {
		t.Fatal("skip should start a fresh work phase")
	}
}

func TestUnknownKeyIgnored(t *testing.T) {
	app := newTestApp(t, nil)
	before := app.machine.Phase.Kind
	app, cmd := press(t, app, 'z')
	if app.machine.Phase.Kind != before || app.machine.Elapsed != 0 || isQuit(cmd) {
		t.Fatal("unknown key should change nothing")
	}
}

// ============================================================
// Navigation
// ============================================================

func TestSwitchViews(t *testing.T) {
	app := newTestApp(t, nil)
	if app.activeView != viewTimer {
		t.Fatal("should start on the timer view")
	}

	app, _ = press(t, app, '2')
	if app.activeView != viewHistory {
		t.Fatalf("expected history, got %d", app.activeView)
	}

	app, cmd := press(t, app, '3')
	if app.activeView != viewStats {
		t.Fatalf("expected stats, got %d", app.activeView)
	}
	var data *statsDataMsg
	for _, msg := range collect(cmd) {
		if m, ok := msg.(statsDataMsg); ok {
			data = &m
		}
	}
	if data == nil || data.err != nil || len(data.counts) != 7 {
		t.Fatalf("expected 7 daily counts, got %+v", data)
	}

	app, _ = send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyTab})})
	if app.activeView != viewTimer {
		t.Fatalf("tab should wrap to timer, got %d", app.activeView)
	}
}

func TestHelpToggle(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = press(t, app, '?')
	if !app.help.ShowAll {
		t.Fatal("? should show full help")
	}
	app, _ = press(t, app, '?')
	if app.help.ShowAll {
		t.Fatal("? again should hide full help")
	}
}

func TestExportPickerNavigation(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = press(t, app, 'x')
	app, _ = send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyDown})})
	if app.exportCursor != 1 {
		t.Fatalf("expected cursor 1, got %d", app.exportCursor)
	}
	app, _ = send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyDown})})
	if app.exportCursor != 1 {
		t.Fatal("cursor should stop at the last format")
	}
	if !strings.Contains(app.View(), "Export Format") {
		t.Fatal("picker should render")
	}

	// Timer keys go to the picker, not the machine.
	app, _ = press(t, app, 'p')
	if app.machine.Phase.Kind == timer.PhasePaused {
		t.Fatal("pause key should not reach the timer while picking")
	}

	app, _ = send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyEscape})})
	if app.exportPicking {
		t.Fatal("esc should close the picker")
	}
}

func TestExportSessions(t *testing.T) {
	s := newTestStore(t)
	s.InsertSession(25, "a", "")
	s.InsertSession(25, "", "b")
	dir := t.TempDir()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.Local)

	path, err := exportSessions(s, 0, dir, now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "pomodoro-export-2026-04-01.csv") {
		t.Fatalf("unexpected path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	path, err = exportSessions(s, 1, dir, now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, ".json") {
		t.Fatalf("unexpected path %q", path)
	}

	if _, err := exportSessions(s, 7, dir, now); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExportDoneStatus(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = send(t, app, exportDoneMsg{path: "/tmp/x.csv"})
	if app.status != "Exported to /tmp/x.csv" {
		t.Fatalf("unexpected status %q", app.status)
	}
}

// ============================================================
// History
// ============================================================

func TestEditSession(t *testing.T) {
	s := newTestStore(t)
	app := newTestApp(t, s)
	app, _ = tick(t, app)
	app, _ = tick(t, app)
	id := app.machine.Sessions()[0].ID

	app, _ = send(t, app, sessionEditedMsg{id: id, tag: "writing", note: "intro"})

	got, err := s.GetSession(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag != "writing" || got.Note != "intro" {
		t.Fatalf("store not updated: %+v", got)
	}
	if mem := app.machine.Sessions()[0]; mem.Tag != "writing" || mem.Note != "intro" {
		t.Fatalf("machine not updated: %+v", mem)
	}
	if app.history.sessions[0].Tag != "writing" {
		t.Fatal("history not refreshed")
	}
}

func TestEditSessionNotFound(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = send(t, app, sessionEditedMsg{id: 404, tag: "x"})
	if !app.statusErr {
		t.Fatal("expected an error status")
	}
}

func TestHistoryEnterOpensForm(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = tick(t, app)
	app, _ = tick(t, app)
	app, _ = press(t, app, '2')

	app, _ = send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyEnter})})
	if !app.history.formActive {
		t.Fatal("enter should open the edit form")
	}
	if !strings.Contains(app.View(), "Edit session") {
		t.Fatal("form should render")
	}

	// Timer keys are typed into the form instead.
	app, _ = press(t, app, 'p')
	if app.machine.Phase.Kind == timer.PhasePaused {
		t.Fatal("pause key should not reach the timer while editing")
	}

	app, _ = send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyEscape})})
	if app.history.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestHistoryEnterWithoutSessions(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = press(t, app, '2')
	app, _ = send(t, app, eventMsg{ev: event.Input(tea.Key{Type: tea.KeyEnter})})
	if app.history.formActive {
		t.Fatal("nothing to edit")
	}
	if !strings.Contains(app.View(), "No sessions yet") {
		t.Fatal("expected empty-state text")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	now := time.Now()
	h := newHistoryModel([]model.Session{
		{ID: 1, CreatedAt: now.Add(-time.Hour), DurationMinutes: 25},
		{ID: 2, CreatedAt: now, DurationMinutes: 25},
	})
	if h.sessions[0].ID != 2 {
		t.Fatalf("expected newest first, got %d", h.sessions[0].ID)
	}
	s, ok := h.selected()
	if !ok || s.ID != 2 {
		t.Fatalf("expected cursor on newest, got %+v", s)
	}
}

func TestHistoryCursorAfterEmptyStart(t *testing.T) {
	h := newHistoryModel(nil)
	if _, ok := h.selected(); ok {
		t.Fatal("empty history has no selection")
	}

	h.setSessions([]model.Session{{ID: 7, CreatedAt: time.Now(), DurationMinutes: 25}})
	if c := h.table.Cursor(); c != 0 {
		t.Fatalf("expected cursor 0, got %d", c)
	}
	s, ok := h.selected()
	if !ok || s.ID != 7 {
		t.Fatalf("expected session 7 selected, got %+v (ok=%v)", s, ok)
	}

	h, _ = h.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !h.formActive || h.editingID != 7 {
		t.Fatal("enter should open the form for the only session")
	}
}

// ============================================================
// Stats
// ============================================================

func TestStatsDateRange(t *testing.T) {
	st := newStatsModel(nil)
	st.now = func() time.Time { return time.Date(2026, 6, 10, 15, 0, 0, 0, time.Local) }

	from, to := st.dateRange()
	if from.Format("2006-01-02") != "2026-06-04" || to.Format("2006-01-02") != "2026-06-11" {
		t.Fatalf("unexpected range %v to %v", from, to)
	}

	st.offset = 1
	from, _ = st.dateRange()
	if from.Format("2006-01-02") != "2026-05-28" {
		t.Fatalf("unexpected previous range start %v", from)
	}
}

func TestStatsPaging(t *testing.T) {
	st := newStatsModel(newTestStore(t))
	st, cmd := st.update(tea.KeyMsg{Type: tea.KeyRight})
	if st.offset != 0 || cmd != nil {
		t.Fatal("cannot page past the current week")
	}
	st, cmd = st.update(tea.KeyMsg{Type: tea.KeyLeft})
	if st.offset != 1 || cmd == nil {
		t.Fatal("left should page back and reload")
	}
}

func TestStatsTotals(t *testing.T) {
	st := newStatsModel(nil)
	st.setSize(100, 30)
	st, _ = st.update(statsDataMsg{counts: []model.DailyCount{
		{Date: "2026-06-09", Count: 2, Minutes: 50},
		{Date: "2026-06-10", Count: 1, Minutes: 25},
	}})
	sessions, minutes := st.totals()
	if sessions != 3 || minutes != 75 {
		t.Fatalf("expected 3/75, got %d/%d", sessions, minutes)
	}
	if !strings.Contains(st.view(), "3 sessions") {
		t.Fatal("view should show totals")
	}
}

func TestStatsDropsStaleWeek(t *testing.T) {
	st := newStatsModel(newTestStore(t))
	st.setSize(100, 30)
	st, older := st.update(tea.KeyMsg{Type: tea.KeyLeft})
	st, _ = st.update(tea.KeyMsg{Type: tea.KeyLeft})
	if st.offset != 2 {
		t.Fatalf("expected offset 2, got %d", st.offset)
	}

	// The reply for the first page arrives after the second key press.
	late, ok := older().(statsDataMsg)
	if !ok || late.offset != 1 {
		t.Fatalf("expected data for offset 1, got %#v", late)
	}
	late.counts = []model.DailyCount{{Date: "2026-06-01", Count: 4, Minutes: 100}}
	st, _ = st.update(late)
	if sessions, _ := st.totals(); sessions != 0 {
		t.Fatalf("stale week should be ignored, got %d sessions", sessions)
	}

	st, _ = st.update(statsDataMsg{offset: 2, counts: []model.DailyCount{{Date: "2026-05-25", Count: 1, Minutes: 25}}})
	if sessions, _ := st.totals(); sessions != 1 {
		t.Fatalf("current week should apply, got %d sessions", sessions)
	}
}

func TestStatsError(t *testing.T) {
	st := newStatsModel(nil)
	st, _ = st.update(statsDataMsg{err: errors.New("boom")})
	if !strings.Contains(st.view(), "boom") {
		t.Fatal("view should show the error")
	}
}

// ============================================================
// Rendering
// ============================================================

func TestAppLoadingState(t *testing.T) {
	app := NewApp(Options{Config: shortConfig(), Source: newFakeSource()})
	if app.View() != "Loading..." {
		t.Fatalf("expected loading view, got %q", app.View())
	}
}

func TestTimerViewPhases(t *testing.T) {
	app := newTestApp(t, nil)
	v := app.View()
	for _, want := range []string{"pomodoro", "Timer", "History", "Stats", "WORK", "00:02"} {
		if !strings.Contains(v, want) {
			t.Fatalf("view missing %q", want)
		}
	}

	app, _ = tick(t, app)
	app, _ = tick(t, app)
	if !strings.Contains(app.View(), "BREAK") {
		t.Fatal("expected break label")
	}
}

func TestTimerViewLongBreakLabel(t *testing.T) {
	cfg := shortConfig()
	tv := newTimerView(cfg)
	tv.setSize(100, 30)
	m := timer.New(timer.LongBreakEvery-1, nil)
	m.Advance(event.Tick(cfg.Working), cfg)

	if !strings.Contains(tv.view(m.Snapshot(cfg)), "LONG BREAK") {
		t.Fatal("fourth completion should show a long break")
	}
}

func TestStatusMessage(t *testing.T) {
	app := newTestApp(t, nil)
	app, _ = send(t, app, statusMsg{text: "hello"})
	if !strings.Contains(app.renderFooter(), "hello") {
		t.Fatal("footer should show status")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-5 * time.Second, "00:00"},
		{61 * time.Second, "01:01"},
		{25 * time.Minute, "25:00"},
		{90 * time.Minute, "90:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.d); got != tt.want {
			t.Errorf("formatClock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "session"); got != "1 session" {
		t.Fatalf("got %q", got)
	}
	if got := pluralize(0, "session"); got != "0 sessions" {
		t.Fatalf("got %q", got)
	}
}

func TestHelpKeys(t *testing.T) {
	k := helpKeys{timer: timer.DefaultConfig(), nav: keys}
	if len(k.ShortHelp()) != 5 {
		t.Fatalf("expected 5 short help bindings, got %d", len(k.ShortHelp()))
	}
	if len(k.FullHelp()) != 4 {
		t.Fatalf("expected 4 help groups, got %d", len(k.FullHelp()))
	}
}

func TestViewNames(t *testing.T) {
	if len(viewNames) != 3 {
		t.Fatalf("expected 3 views, got %d", len(viewNames))
	}
	if viewNames[viewStats] != "Stats" {
		t.Fatalf("unexpected name %q", viewNames[viewStats])
	}
}
