// Package config loads the YAML settings file: colors, note style, default
// device, bar length and key bindings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/james-see/midnote/pkg/note"
	"github.com/james-see/midnote/pkg/player"
)

const (
	dirName  = "midnote"
	fileName = "config.yaml"

	DefaultSpeedStep = 0.1
)

// Config is the settings file. Zero values never reach callers: Load
// starts from DefaultConfig and the file only overrides what it names.
type Config struct {
	Colors      bool    `yaml:"colors"`
	NoteStyle   string  `yaml:"noteStyle"`
	Device      int     `yaml:"device"`
	BeatsPerBar int     `yaml:"beatsPerBar"`
	SpeedStep   float64 `yaml:"speedStep"`
	Keys        Keys    `yaml:"keys"`
}

// Keys lists the key names bound to each action, as bubbletea reports
// them ("right", "ctrl+c", "a"). "space" is accepted for the space bar.
type Keys struct {
	Next           []string `yaml:"next,flow"`
	Prev           []string `yaml:"prev,flow"`
	Replay         []string `yaml:"replay,flow"`
	Silence        []string `yaml:"silence,flow"`
	Rewind         []string `yaml:"rewind,flow"`
	Solo           []string `yaml:"solo,flow"`
	TransposeUp    []string `yaml:"transposeUp,flow"`
	TransposeDown  []string `yaml:"transposeDown,flow"`
	TransposeReset []string `yaml:"transposeReset,flow"`
	SpeedUp        []string `yaml:"speedUp,flow"`
	SpeedDown      []string `yaml:"speedDown,flow"`
	Info           []string `yaml:"info,flow"`
	NoteStyle      []string `yaml:"noteStyle,flow"`
	Help           []string `yaml:"help,flow"`
	Exit           []string `yaml:"exit,flow"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		Colors:      true,
		NoteStyle:   note.StyleMixed.String(),
		Device:      0,
		BeatsPerBar: player.DefaultBeatsPerBar,
		SpeedStep:   DefaultSpeedStep,
		Keys: Keys{
			Next:           []string{"right"},
			Prev:           []string{"left"},
			Replay:         []string{"r"},
			Silence:        []string{"space"},
			Rewind:         []string{"s"},
			Solo:           []string{"o"},
			TransposeUp:    []string{"up"},
			TransposeDown:  []string{"down"},
			TransposeReset: []string{"0"},
			SpeedUp:        []string{"+", "="},
			SpeedDown:      []string{"-"},
			Info:           []string{"i"},
			NoteStyle:      []string{"n"},
			Help:           []string{"h", "?"},
			Exit:           []string{"esc", "q", "ctrl+c"},
		},
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", dirName), nil
}

// Path returns the full path to config.yaml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads the config at path, or the default location when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, or the default location when path is
// empty, creating the directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Style returns the configured note style
func (c *Config) Style() note.Style {
	s, _ := note.ParseStyle(c.NoteStyle)
	return s
}

// Validate reports every problem found, joined
func (c *Config) Validate() error {
	var errs []error

	if _, err := note.ParseStyle(c.NoteStyle); err != nil {
		errs = append(errs, err)
	}
	if c.Device < 0 {
		errs = append(errs, fmt.Errorf("device %d: must not be negative", c.Device))
	}
	if c.BeatsPerBar < 1 {
		errs = append(errs, fmt.Errorf("beatsPerBar %d: must be at least 1", c.BeatsPerBar))
	}
	if c.SpeedStep <= 0 {
		errs = append(errs, fmt.Errorf("speedStep %v: must be positive", c.SpeedStep))
	}

	seen := make(map[string]string)
	for _, a := range c.Keys.actions() {
		if len(a.keys) == 0 {
			errs = append(errs, fmt.Errorf("keys.%s: no key bound", a.name))
		}
		for _, k := range a.keys {
			k = keyName(k)
			if other, dup := seen[k]; dup {
				errs = append(errs, fmt.Errorf("keys.%s: %q is already bound to %s", a.name, displayName(k), other))
				continue
			}
			seen[k] = a.name
		}
	}

	return errors.Join(errs...)
}

type action struct {
	name string
	keys []string
}

func (k Keys) actions() []action {
	return []action{
		{"next", k.Next},
		{"prev", k.Prev},
		{"replay", k.Replay},
		{"silence", k.Silence},
		{"rewind", k.Rewind},
		{"solo", k.Solo},
		{"transposeUp", k.TransposeUp},
		{"transposeDown", k.TransposeDown},
		{"transposeReset", k.TransposeReset},
		{"speedUp", k.SpeedUp},
		{"speedDown", k.SpeedDown},
		{"info", k.Info},
		{"noteStyle", k.NoteStyle},
		{"help", k.Help},
		{"exit", k.Exit},
	}
}
