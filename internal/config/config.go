// Package config loads user preferences from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/pomodoro/internal/timer"
	"gopkg.in/yaml.v3"
)

const (
	appName        = "pomodoro"
	configFileName = "config.yaml"
	dbFileName     = "pomodoro.db"
	logFileName    = "pomodoro.log"
)

// ErrInvalid marks a config file whose values cannot drive the timer.
var ErrInvalid = errors.New("invalid config")

// Config is the resolved runtime configuration.
type Config struct {
	Working    time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration

	PauseKey string
	SkipKey  string
	QuitKey  string

	DBPath  string
	LogPath string
}

// fileConfig is the on-disk shape. Durations are whole minutes.
type fileConfig struct {
	Working    *int   `yaml:"working"`
	ShortBreak *int   `yaml:"short_break"`
	LongBreak  *int   `yaml:"long_break"`
	DBPath     string `yaml:"db_path"`
	LogPath    string `yaml:"log_path"`
	PauseKey   string `yaml:"pause_key"`
	SkipKey    string `yaml:"skip_key"`
	QuitKey    string `yaml:"quit_key"`
}

// Default returns the configuration used when no file exists.
func Default() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Working:    25 * time.Minute,
		ShortBreak: 5 * time.Minute,
		LongBreak:  10 * time.Minute,
		PauseKey:   "p",
		SkipKey:    "s",
		QuitKey:    "q",
		DBPath:     filepath.Join(dir, dbFileName),
		LogPath:    filepath.Join(dir, logFileName),
	}, nil
}

// Dir is ~/.config/pomodoro (or the platform equivalent).
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config at path. With an empty path the default location is
// used and a missing file yields defaults; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	explicit := path != ""
	if !explicit {
		if path, err = DefaultPath(); err != nil {
			return cfg, err
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	return Parse(raw, cfg)
}

// Parse applies YAML data on top of base.
func Parse(raw []byte, base Config) (Config, error) {
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return base, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg := base
	applyFile(&cfg, file)
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, file fileConfig) {
	if file.Working != nil {
		cfg.Working = time.Duration(*file.Working) * time.Minute
	}
	if file.ShortBreak != nil {
		cfg.ShortBreak = time.Duration(*file.ShortBreak) * time.Minute
	}
	if file.LongBreak != nil {
		cfg.LongBreak = time.Duration(*file.LongBreak) * time.Minute
	}
	if file.DBPath != "" {
		cfg.DBPath = expandHome(file.DBPath)
	}
	if file.LogPath != "" {
		cfg.LogPath = expandHome(file.LogPath)
	}
	if file.PauseKey != "" {
		cfg.PauseKey = file.PauseKey
	}
	if file.SkipKey != "" {
		cfg.SkipKey = file.SkipKey
	}
	if file.QuitKey != "" {
		cfg.QuitKey = file.QuitKey
	}
}

// Validate rejects durations that are not positive and key clashes. ctrl+c
// always quits, so only quit_key may name it.
func (c Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"working", c.Working},
		{"short_break", c.ShortBreak},
		{"long_break", c.LongBreak},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalid, d.name, d.d)
		}
	}

	seen := map[string]string{}
	for name, k := range map[string]string{"pause_key": c.PauseKey, "skip_key": c.SkipKey, "quit_key": c.QuitKey} {
		if k == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalid, name)
		}
		if k == "ctrl+c" && name != "quit_key" {
			return fmt.Errorf("%w: %s cannot be ctrl+c, it always quits", ErrInvalid, name)
		}
		if other, ok := seen[k]; ok {
			return fmt.Errorf("%w: %s and %s are both %q", ErrInvalid, name, other, k)
		}
		seen[k] = name
	}
	return nil
}

// Timer builds the state machine configuration. Quit is also bound to
// ctrl+c because the terminal runs in raw mode.
func (c Config) Timer() timer.Config {
	quit := []string{c.QuitKey}
	if c.QuitKey != "ctrl+c" {
		quit = append(quit, "ctrl+c")
	}
	return timer.Config{
		Working:    c.Working,
		ShortBreak: c.ShortBreak,
		LongBreak:  c.LongBreak,
		Pause:      timer.Bind("pause/resume", c.PauseKey),
		Skip:       timer.Bind("skip break", c.SkipKey),
		Quit:       timer.Bind("quit", quit...),
	}
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	working := int(cfg.Working / time.Minute)
	short := int(cfg.ShortBreak / time.Minute)
	long := int(cfg.LongBreak / time.Minute)
	out, err := yaml.Marshal(fileConfig{
		Working:    &working,
		ShortBreak: &short,
		LongBreak:  &long,
		DBPath:     cfg.DBPath,
		LogPath:    cfg.LogPath,
		PauseKey:   cfg.PauseKey,
		SkipKey:    cfg.SkipKey,
		QuitKey:    cfg.QuitKey,
	})
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
