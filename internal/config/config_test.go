package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.Model != "gemini-2.0-flash" {
		t.Errorf("API.Model = %q, want %q", cfg.API.Model, "gemini-2.0-flash")
	}
	if cfg.API.TimeoutSeconds != 60 {
		t.Errorf("API.TimeoutSeconds = %d, want 60", cfg.API.TimeoutSeconds)
	}
	if len(cfg.Hotkey.Keys) != 3 {
		t.Errorf("Hotkey.Keys length = %d, want 3", len(cfg.Hotkey.Keys))
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Audio.BitDepth != 16 {
		t.Errorf("Audio.BitDepth = %d, want 16", cfg.Audio.BitDepth)
	}
	if cfg.Capture.Binary != "sox" {
		t.Errorf("Capture.Binary = %q, want %q", cfg.Capture.Binary, "sox")
	}
	if cfg.Session.Mode != "transcription" {
		t.Errorf("Session.Mode = %q, want %q", cfg.Session.Mode, "transcription")
	}
	if !cfg.Session.PauseMedia {
		t.Error("Session.PauseMedia should default to true")
	}
	if cfg.Session.TempDir == "" {
		t.Error("Session.TempDir should not be empty")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
api:
  key: test-key
  model: gemini-2.5-pro
  timeout_seconds: 30
hotkey:
  keys: ["alt", "d"]
  cancel_keys: ["alt", "x"]
audio:
  sample_rate: 44100
  channels: 2
capture:
  binary: rec
session:
  mode: prompt
  include_video: true
  temp_dir: /tmp/voxtype-test
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Key != "test-key" {
		t.Errorf("API.Key = %q, want %q", cfg.API.Key, "test-key")
	}
	if cfg.API.Model != "gemini-2.5-pro" {
		t.Errorf("API.Model = %q, want %q", cfg.API.Model, "gemini-2.5-pro")
	}
	if cfg.API.TimeoutSeconds != 30 {
		t.Errorf("API.TimeoutSeconds = %d, want 30", cfg.API.TimeoutSeconds)
	}
	if len(cfg.Hotkey.Keys) != 2 || cfg.Hotkey.Keys[0] != "alt" || cfg.Hotkey.Keys[1] != "d" {
		t.Errorf("Hotkey.Keys = %v, want [alt d]", cfg.Hotkey.Keys)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Capture.Binary != "rec" {
		t.Errorf("Capture.Binary = %q, want %q", cfg.Capture.Binary, "rec")
	}
	if cfg.Session.Mode != "prompt" {
		t.Errorf("Session.Mode = %q, want %q", cfg.Session.Mode, "prompt")
	}
	if !cfg.Session.IncludeVideo {
		t.Error("Session.IncludeVideo = false, want true")
	}
	if cfg.Session.TempDir != "/tmp/voxtype-test" {
		t.Errorf("Session.TempDir = %q, want /tmp/voxtype-test", cfg.Session.TempDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}

	// Defaults survive for fields the file omits.
	if cfg.API.Endpoint == "" {
		t.Error("API.Endpoint should keep its default")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	yamlContent := `
api:
  key: k
session:
  temp_dir: ~/voxtype-media
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	want := filepath.Join(home, "voxtype-media")
	if cfg.Session.TempDir != want {
		t.Errorf("Session.TempDir = %q, want %q", cfg.Session.TempDir, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() of missing file should return error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.API.Key = "k"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string // error substring
	}{
		{"no key", func(c *Config) { c.API.Key = "" }, "api.key"},
		{"no model", func(c *Config) { c.API.Model = "" }, "api.model"},
		{"zero timeout", func(c *Config) { c.API.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"no hotkey", func(c *Config) { c.Hotkey.Keys = nil }, "hotkey.keys"},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "sample_rate"},
		{"zero channels", func(c *Config) { c.Audio.Channels = 0 }, "channels"},
		{"odd bit depth", func(c *Config) { c.Audio.BitDepth = 12 }, "bit_depth"},
		{"no capture binary", func(c *Config) { c.Capture.Binary = "" }, "capture.binary"},
		{"bad mode", func(c *Config) { c.Session.Mode = "haiku" }, "session.mode"},
		{"no temp dir", func(c *Config) { c.Session.TempDir = "" }, "temp_dir"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidateAcceptsEncryptedKeyOnly(t *testing.T) {
	cfg := Default()
	cfg.API.KeyEncrypted = "c29tZSBibG9i"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with only an encrypted key: %v", err)
	}
}
