package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pomodoro/internal/config"
	"github.com/sadopc/pomodoro/internal/event"
	"github.com/sadopc/pomodoro/internal/observability"
	"github.com/sadopc/pomodoro/internal/store"
	"github.com/sadopc/pomodoro/internal/timer"
	"github.com/sadopc/pomodoro/internal/tui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config.yaml (default: user config dir)")
	dbPath := flag.String("db", "", "database path (overrides db_path)")
	writeConfig := flag.Bool("write-config", false, "write the resolved config file and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("pomodoro", version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if *writeConfig {
		path := *configPath
		if path == "" {
			if path, err = config.DefaultPath(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return 1
			}
		}
		if err := config.Save(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Println("wrote", path)
		return 0
	}

	logger, err := observability.New(cfg.LogPath, slog.LevelInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log: %v\n", err)
		return 1
	}
	defer logger.Close()

	s, err := store.New(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		return 1
	}
	defer s.Close()

	today := time.Now()
	sessions, err := s.SessionsOn(today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	completed, err := s.CountSessionsOn(today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("starting", "version", version, "db", cfg.DBPath, "completed_today", completed)

	source, err := event.New(event.Options{
		Input:  os.Stdin,
		Logger: logger.Logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	app := tui.NewApp(tui.Options{
		Config:  cfg.Timer(),
		Store:   s,
		Source:  source,
		Machine: timer.New(completed, sessions),
		Logger:  logger.Logger,
	})

	// The event source owns stdin; bubbletea only draws.
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithInput(nil))
	final, runErr := p.Run()
	closeSource(source, logger.Logger, os.Stderr)

	if runErr != nil {
		logger.Error("program failed", "err", runErr)
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return 1
	}
	if a, ok := final.(tui.App); ok {
		if a.Unsaved() > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d completed session(s) could not be saved\n", a.Unsaved())
		}
		if err := a.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

// closeSource stops the event source and restores the terminal. A failure
// is logged and reported, but does not change the exit status.
func closeSource(src io.Closer, logger *slog.Logger, stderr io.Writer) {
	if err := src.Close(); err != nil {
		logger.Error("close event source", "err", err)
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}
}
