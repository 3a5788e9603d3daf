package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config is the read-only viewer configuration, loaded from a TOML file.
// User-mutable UI state (window geometry, last study) lives in ui/prefs
// instead.
type Config struct {
	LogLevel    string        `toml:"log_level"`
	DefaultTool string        `toml:"default_tool"`
	MaxEdge     int           `toml:"max_texture_edge"`
	Overlay     OverlayConfig `toml:"overlay"`
}

// OverlayConfig styles the detection overlay.
type OverlayConfig struct {
	StrokeWidth float32 `toml:"stroke_width"`
	LowColor    string  `toml:"low_color"`
	HighColor   string  `toml:"high_color"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		DefaultTool: "window-level",
		MaxEdge:     4096,
		Overlay: OverlayConfig{
			StrokeWidth: 2,
			LowColor:    "#ffb000",
			HighColor:   "#ff2020",
		},
	}
}

// ConfigPath returns the expected config file location,
// ~/.config/dicom-viewer/config.toml.
func ConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "dicom-viewer", "config.toml")
}

// LoadConfig reads the configuration from path. A missing file yields the
// defaults; a malformed file is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// LogLevelValue translates the configured level name for the logger.
// Unknown names fall back to info.
func (c Config) LogLevelValue() log.Level {
	if lvl, err := log.ParseLevel(c.LogLevel); err == nil {
		return lvl
	}
	return log.InfoLevel
}
