package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/soundforge/internal/config"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "soundforge.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, config.LogInfo)
	}
	if cfg.Audio.FFmpegPath != "ffmpeg" || cfg.Audio.Bitrate != "128k" {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if cfg.Audio.TargetPeakDB != -0.5 {
		t.Errorf("TargetPeakDB = %g, want -0.5", cfg.Audio.TargetPeakDB)
	}
	if !cfg.Gate.Enabled {
		t.Error("gate should be enabled by default")
	}
}

func TestLoadFromReader_OverlaysDefaults(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: debug
audio:
  fast_tempo: 1.5
providers:
  elevenlabs:
    model: eleven_turbo_v2
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Audio.FastTempo != 1.5 {
		t.Errorf("FastTempo = %g, want 1.5", cfg.Audio.FastTempo)
	}
	// Unset keys keep their defaults.
	if cfg.Audio.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q, want default", cfg.Audio.FFmpegPath)
	}
	if cfg.Providers.ElevenLabs.Model != "eleven_turbo_v2" {
		t.Errorf("Model = %q", cfg.Providers.ElevenLabs.Model)
	}
}

func TestLoadFromReader_EmptyInput(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Audio.FastTempo != 1.3 {
		t.Errorf("FastTempo = %g, want default 1.3", cfg.Audio.FastTempo)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("audio:\n  loudness: -14\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			"unknown log level",
			func(c *config.Config) { c.LogLevel = "verbose" },
			"log_level",
		},
		{
			"empty ffmpeg path",
			func(c *config.Config) { c.Audio.FFmpegPath = "" },
			"ffmpeg_path",
		},
		{
			"positive target peak",
			func(c *config.Config) { c.Audio.TargetPeakDB = 1.0 },
			"target_peak_db",
		},
		{
			"tempo below range",
			func(c *config.Config) { c.Audio.FastTempo = 0.8 },
			"fast_tempo",
		},
		{
			"tempo above range",
			func(c *config.Config) { c.Audio.FastTempo = 2.5 },
			"fast_tempo",
		},
		{
			"gate rate not positive",
			func(c *config.Config) { c.Gate.BytesPerChar = 0 },
			"bytes_per_char",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_DisabledGateSkipsThresholds(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Gate.Enabled = false
	cfg.Gate.BytesPerChar = 0
	if err := config.Validate(cfg); err != nil {
		t.Errorf("disabled gate thresholds should not be validated: %v", err)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.LogLevel = "loud"
	cfg.Audio.Bitrate = ""
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"log_level", "bitrate"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}

func TestNewGate(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	if cfg.NewGate() == nil {
		t.Error("enabled gate config should build a gate")
	}
	cfg.Gate.Enabled = false
	if cfg.NewGate() != nil {
		t.Error("disabled gate config should build nil")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "el-key")
	t.Setenv("TTSMONSTER_API_KEY", "ttsm-key")

	creds, err := config.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.ElevenLabsAPIKey != "el-key" || creds.TTSMonsterAPIKey != "ttsm-key" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "soundforge.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != config.LogWarn {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}
