// internal/config/config.go
//
// This package handles configuration and the .gridmatch directory structure.
// Every directory a match is launched from gets a .gridmatch/ folder holding
// the config file, logs, and any validator plugins.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// GameDir is the name of the directory we create per project
	GameDir = ".gridmatch"

	defaultSlotCount     = 12
	defaultGroupSize     = 3
	defaultPointMillis   = 1000
	defaultPenaltyMillis = 3000
)

const defaultMatchConfigYAML = `# gridmatch configuration
version: 1

grid:
  slot_count: 12
  group_size: 3

# Freeze windows applied after referee feedback, in milliseconds.
freeze:
  point_ms: 1000
  penalty_ms: 3000

players:
  human: 1
  computer: 2

# Match validator. Use source: plugin with a directory of .go files to load
# a custom rule (each file must define MatchValidator(cards []int) bool).
validator:
  source: builtin
  # source: plugin
  # path: .gridmatch/validators

# Optional HTTP spectator endpoint.
spectator:
  enabled: false
  addr: 127.0.0.1:7779
`

// GridConfig sizes the shared grid.
type GridConfig struct {
	SlotCount int `yaml:"slot_count"`
	GroupSize int `yaml:"group_size"`
}

// FreezeConfig holds the cooldown windows in milliseconds.
type FreezeConfig struct {
	PointMillis   int `yaml:"point_ms"`
	PenaltyMillis int `yaml:"penalty_ms"`
}

// PlayersConfig counts the participants per kind.
type PlayersConfig struct {
	Human    int `yaml:"human"`
	Computer int `yaml:"computer"`
}

// ValidatorConfig selects the match rule implementation.
type ValidatorConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path,omitempty"`
}

// SpectatorConfig configures the optional HTTP endpoint.
type SpectatorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"`
}

// MatchConfig models .gridmatch/config.yaml.
type MatchConfig struct {
	Version   int             `yaml:"version"`
	Grid      GridConfig      `yaml:"grid"`
	Freeze    FreezeConfig    `yaml:"freeze"`
	Players   PlayersConfig   `yaml:"players"`
	Validator ValidatorConfig `yaml:"validator"`
	Spectator SpectatorConfig `yaml:"spectator"`
}

// Config holds the runtime configuration for gridmatch.
type Config struct {
	// ProjectDir is the directory where the user ran `gridmatch` from
	ProjectDir string

	// GameProjectDir is ProjectDir/.gridmatch
	GameProjectDir string

	Match MatchConfig
}

// InitGameDir creates the .gridmatch directory structure in the given
// project directory and writes the default config file if none exists.
func InitGameDir(projectDir string) error {
	gameDir := filepath.Join(projectDir, GameDir)
	dirs := []string{
		filepath.Join(gameDir, "logs"),
		filepath.Join(gameDir, "validators"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureMatchConfig(filepath.Join(gameDir, "config.yaml"))
}

// New creates a Config populated from .gridmatch/config.yaml, falling back
// to defaults when the file is absent.
func New(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:     projectDir,
		GameProjectDir: filepath.Join(projectDir, GameDir),
		Match:          defaultMatchConfig(),
	}
	if err := cfg.loadMatchConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.GameProjectDir, "logs")
}

// ValidatorsDir returns the default directory scanned for validator plugins.
func (c *Config) ValidatorsDir() string {
	return filepath.Join(c.GameProjectDir, "validators")
}

// MatchConfigPath returns the on-disk location for the config file.
func (c *Config) MatchConfigPath() string {
	return filepath.Join(c.GameProjectDir, "config.yaml")
}

// PointFreeze returns the point cooldown as a duration.
func (c *Config) PointFreeze() time.Duration {
	return time.Duration(c.Match.Freeze.PointMillis) * time.Millisecond
}

// PenaltyFreeze returns the penalty cooldown as a duration.
func (c *Config) PenaltyFreeze() time.Duration {
	return time.Duration(c.Match.Freeze.PenaltyMillis) * time.Millisecond
}

// TotalPlayers returns the number of participants to spawn.
func (c *Config) TotalPlayers() int {
	return c.Match.Players.Human + c.Match.Players.Computer
}

func (c *Config) loadMatchConfig() error {
	path := c.MatchConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed MatchConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Match = parsed
	return nil
}

func defaultMatchConfig() MatchConfig {
	return MatchConfig{
		Version: 1,
		Grid:    GridConfig{SlotCount: defaultSlotCount, GroupSize: defaultGroupSize},
		Freeze:  FreezeConfig{PointMillis: defaultPointMillis, PenaltyMillis: defaultPenaltyMillis},
		Players: PlayersConfig{Human: 1, Computer: 2},
		Validator: ValidatorConfig{
			Source: "builtin",
		},
	}
}

func (mc *MatchConfig) applyDefaults() {
	if mc.Version == 0 {
		mc.Version = 1
	}
	if mc.Grid.SlotCount == 0 {
		mc.Grid.SlotCount = defaultSlotCount
	}
	if mc.Grid.GroupSize == 0 {
		mc.Grid.GroupSize = defaultGroupSize
	}
	if mc.Freeze.PointMillis == 0 {
		mc.Freeze.PointMillis = defaultPointMillis
	}
	if mc.Freeze.PenaltyMillis == 0 {
		mc.Freeze.PenaltyMillis = defaultPenaltyMillis
	}
	if mc.Validator.Source == "" {
		mc.Validator.Source = "builtin"
	}
}

func (mc *MatchConfig) normalize(base string) {
	mc.Validator.Source = strings.ToLower(strings.TrimSpace(mc.Validator.Source))
	mc.Validator.Path = resolvePath(base, mc.Validator.Path)
	mc.Spectator.Addr = strings.TrimSpace(mc.Spectator.Addr)
	if mc.Spectator.Enabled && mc.Spectator.Addr == "" {
		mc.Spectator.Addr = "127.0.0.1:7779"
	}
}

func (mc *MatchConfig) validate() error {
	if mc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if mc.Grid.SlotCount < 1 {
		return fmt.Errorf("grid.slot_count must be >= 1")
	}
	if mc.Grid.GroupSize < 1 || mc.Grid.GroupSize > mc.Grid.SlotCount {
		return fmt.Errorf("grid.group_size must be between 1 and grid.slot_count")
	}
	if mc.Freeze.PointMillis < 0 || mc.Freeze.PenaltyMillis < 0 {
		return fmt.Errorf("freeze windows must not be negative")
	}
	if mc.Players.Human < 0 || mc.Players.Computer < 0 {
		return fmt.Errorf("player counts must not be negative")
	}
	if mc.Players.Human+mc.Players.Computer < 1 {
		return fmt.Errorf("at least one player is required")
	}
	switch mc.Validator.Source {
	case "builtin":
	case "plugin":
		if mc.Validator.Path == "" {
			return fmt.Errorf("validator.path is required for plugin validators")
		}
	default:
		return fmt.Errorf("validator.source must be 'builtin' or 'plugin'")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureMatchConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultMatchConfigYAML), 0o644)
}
