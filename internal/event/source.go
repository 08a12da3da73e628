package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/muesli/cancelreader"
)

// DefaultTickInterval is the clock resolution of the timer.
const DefaultTickInterval = time.Second

// Options configures a Source.
type Options struct {
	// Input is the raw keyboard stream. A terminal is switched to raw mode
	// until Close.
	Input        io.Reader
	TickInterval time.Duration
	Logger       *slog.Logger
}

// item travels from a producer to the pump. A non-nil err ends the stream.
type item struct {
	ev  Event
	err error
}

// Source runs a keyboard producer and a ticker producer and hands their
// events to a single consumer through an unbounded FIFO queue.
type Source struct {
	reader   cancelreader.CancelReader
	restore  func() error
	interval time.Duration
	logger   *slog.Logger

	in  chan item
	out chan Event

	stop      chan struct{} // halts both producers
	closed    chan struct{} // closed by Close; the pump drops its queue
	haltOnce  sync.Once
	closeOnce sync.Once

	keysDone chan struct{}
	tickDone chan struct{}
	pumpDone chan struct{}

	// err is written by the pump before out is closed.
	err error
}

// New starts the producers. The caller must call Close.
func New(opts Options) (*Source, error) {
	if opts.Input == nil {
		return nil, errors.New("event source: nil input")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	restore, err := makeRaw(opts.Input)
	if err != nil {
		return nil, err
	}
	reader, err := cancelreader.NewReader(opts.Input)
	if err != nil {
		_ = restore()
		return nil, fmt.Errorf("wrap input: %w", err)
	}

	s := &Source{
		reader:   reader,
		restore:  restore,
		interval: opts.TickInterval,
		logger:   opts.Logger.With("component", "events"),
		in:       make(chan item),
		out:      make(chan Event),
		stop:     make(chan struct{}),
		closed:   make(chan struct{}),
		keysDone: make(chan struct{}),
		tickDone: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pump()
	go s.readKeys()
	go s.tick()
	return s, nil
}

// Next blocks until the next event arrives. Once the keyboard stream has
// failed, Next drains what was already queued and then returns an error
// wrapping ErrInput. After Close it returns ErrClosed.
func (s *Source) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s.out:
		if !ok {
			if s.err != nil {
				return Event{}, s.err
			}
			return Event{}, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close stops both producers and waits for them. A read that cannot be
// cancelled is abandoned; its goroutine exits on its next send attempt.
// Close restores the terminal mode changed by New and is safe to call twice.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.halt()
		canceled := s.reader.Cancel()
		<-s.tickDone
		<-s.pumpDone
		if canceled {
			<-s.keysDone
			if cerr := s.reader.Close(); cerr != nil {
				err = fmt.Errorf("close input: %w", cerr)
			}
		}
		if rerr := s.restore(); rerr != nil && err == nil {
			err = fmt.Errorf("restore terminal: %w", rerr)
		}
		s.logger.Debug("event source closed", "input_cancelled", canceled)
	})
	return err
}

func (s *Source) halt() {
	s.haltOnce.Do(func() { close(s.stop) })
}

// send hands an item to the pump unless the source is stopping.
func (s *Source) send(it item) bool {
	select {
	case s.in <- it:
		return true
	case <-s.stop:
		return false
	}
}

func (s *Source) readKeys() {
	defer close(s.keysDone)

	buf := make([]byte, 256)
	for {
		n, err := s.reader.Read(buf)
		for _, k := range decodeKeys(buf[:n]) {
			if !s.send(item{ev: Input(k)}) {
				return
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, cancelreader.ErrCanceled) {
			return
		}
		s.logger.Error("keyboard read failed", "error", err)
		s.send(item{err: fmt.Errorf("%w: %v", ErrInput, err)})
		return
	}
}

func (s *Source) tick() {
	defer close(s.tickDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.send(item{ev: Tick(s.interval)}) {
				return
			}
		}
	}
}

// pump buffers events between the producers and the consumer so that
// neither producer ever waits on the consumer.
func (s *Source) pump() {
	defer close(s.pumpDone)
	defer close(s.out)

	var queue []Event
	in := s.in
	for {
		if in == nil && len(queue) == 0 {
			return
		}

		var out chan<- Event
		var head Event
		if len(queue) > 0 {
			out = s.out
			head = queue[0]
		}

		select {
		case it := <-in:
			if it.err != nil {
				s.err = it.err
				s.halt()
				in = nil
				continue
			}
			queue = append(queue, it.ev)
		case out <- head:
			queue[0] = Event{}
			queue = queue[1:]
		case <-s.closed:
			return
		}
	}
}

func makeRaw(r io.Reader) (func() error, error) {
	f, ok := r.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return func() error { return nil }, nil
	}
	state, err := term.MakeRaw(f.Fd())
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	return func() error { return term.Restore(f.Fd(), state) }, nil
}
