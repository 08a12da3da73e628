package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Logger writes JSON records to a file; stdout belongs to the terminal UI.
type Logger struct {
	*slog.Logger
	file io.Closer
}

// New opens (or creates) the log file at path. Every record carries the
// run_id of this process so that interleaved runs can be told apart.
func New(path string, level slog.Level) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger: slog.New(handler).With("run_id", uuid.NewString()),
		file:   f,
	}, nil
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
