package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig     `yaml:"api"`
	Hotkey   HotkeyConfig  `yaml:"hotkey"`
	Audio    AudioConfig   `yaml:"audio"`
	Capture  CaptureConfig `yaml:"capture"`
	Session  SessionConfig `yaml:"session"`
	LogLevel string        `yaml:"log_level"`
}

// APIConfig holds remote inference settings.
type APIConfig struct {
	Key            string `yaml:"key"`
	KeyEncrypted   string `yaml:"key_encrypted"` // base64 blob produced by -encrypt-key
	Model          string `yaml:"model"`
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys       []string `yaml:"keys"`        // toggle recording
	CancelKeys []string `yaml:"cancel_keys"` // abort an active recording
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// CaptureConfig selects the external capture binary.
type CaptureConfig struct {
	Binary   string `yaml:"binary"`
	Fallback bool   `yaml:"fallback"` // use the in-process recorder when the binary is missing
}

// SessionConfig holds dictation session defaults.
type SessionConfig struct {
	Mode         string `yaml:"mode"` // "transcription" or "prompt"
	IncludeVideo bool   `yaml:"include_video"`
	PauseMedia   bool   `yaml:"pause_media"`
	TempDir      string `yaml:"temp_dir"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voxtype")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultTempDir returns the per-user directory for session media files.
func DefaultTempDir() string {
	cache, err := os.UserCacheDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(cache, "voxtype")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Model:          "gemini-2.0-flash",
			Endpoint:       "https://generativelanguage.googleapis.com/v1beta",
			TimeoutSeconds: 60,
		},
		Hotkey: HotkeyConfig{
			Keys:       []string{"ctrl", "shift", "d"},
			CancelKeys: []string{"ctrl", "shift", "x"},
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BitDepth:   16,
		},
		Capture: CaptureConfig{
			Binary:   "sox",
			Fallback: true,
		},
		Session: SessionConfig{
			Mode:       "transcription",
			PauseMedia: true,
			TempDir:    DefaultTempDir(),
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in temp_dir is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Session.TempDir = expandTilde(cfg.Session.TempDir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.API.Key == "" && c.API.KeyEncrypted == "" {
		return fmt.Errorf("api.key or api.key_encrypted must be set")
	}

	if c.API.Model == "" {
		return fmt.Errorf("api.model must not be empty")
	}

	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint must not be empty")
	}

	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	switch c.Audio.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("audio.bit_depth must be 8, 16, 24 or 32, got %d", c.Audio.BitDepth)
	}

	if c.Capture.Binary == "" {
		return fmt.Errorf("capture.binary must not be empty")
	}

	switch c.Session.Mode {
	case "transcription", "prompt":
	default:
		return fmt.Errorf("session.mode must be \"transcription\" or \"prompt\", got %q", c.Session.Mode)
	}

	if c.Session.TempDir == "" {
		return fmt.Errorf("session.temp_dir must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
