// Package config provides the configuration schema, loader and provider
// registry wiring for soundforge.
//
// The config file is YAML and holds only tuning values. Credentials are never
// stored in it; they come from the environment (see [LoadCredentials]).
package config

import (
	"github.com/MrWong99/soundforge/internal/audio"
	"github.com/MrWong99/soundforge/internal/syncer"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Gate      GateConfig      `yaml:"quality_gate"`
	Providers ProvidersConfig `yaml:"providers"`
}

// AudioConfig tunes the normalization engine.
type AudioConfig struct {
	// FFmpegPath locates the ffmpeg binary.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// TargetPeakDB is the normalization target margin in dBFS. Must be
	// <= 0; the default leaves 0.5 dB of clipping headroom.
	TargetPeakDB float64 `yaml:"target_peak_db"`

	// Bitrate is the fixed CBR encode bitrate, e.g. "128k".
	Bitrate string `yaml:"bitrate"`

	// FastTempo is the atempo multiplier simulating a fast markup rate on
	// providers without markup support. Calibrated against the inline
	// provider's own fast rate; valid range 1.0–2.0.
	FastTempo float64 `yaml:"fast_tempo"`
}

// GateConfig tunes the post-generation quality gate. The thresholds are
// heuristics tuned against one backend's failure modes — configuration, not
// invariants.
type GateConfig struct {
	// Enabled turns the gate off entirely when false, for providers where
	// the size heuristic is known unreliable.
	Enabled bool `yaml:"enabled"`

	BytesPerChar   int64 `yaml:"bytes_per_char"`
	ShortTextLen   int   `yaml:"short_text_len"`
	ShortTextBonus int64 `yaml:"short_text_bonus"`
}

// ProvidersConfig holds per-backend tuning. Anything secret stays out of it.
type ProvidersConfig struct {
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	TTSMonster TTSMonsterConfig `yaml:"ttsmonster"`
}

// ElevenLabsConfig tunes the ElevenLabs backend.
type ElevenLabsConfig struct {
	// Model is the ElevenLabs model ID. Empty selects the provider default.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint, mainly for testing.
	BaseURL string `yaml:"base_url"`
}

// TTSMonsterConfig tunes the TTS.Monster backend.
type TTSMonsterConfig struct {
	// BaseURL overrides the API endpoint, mainly for testing.
	BaseURL string `yaml:"base_url"`
}

// Default returns a Config with every field at its default value. Loading a
// file overlays onto these defaults, so omitted keys keep them.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			FFmpegPath:   "ffmpeg",
			TargetPeakDB: audio.DefaultTargetPeakDB,
			Bitrate:      audio.DefaultBitrate,
			FastTempo:    1.3,
		},
		Gate: GateConfig{
			Enabled:        true,
			BytesPerChar:   syncer.DefaultBytesPerChar,
			ShortTextLen:   syncer.DefaultShortTextLen,
			ShortTextBonus: syncer.DefaultShortTextBonus,
		},
	}
}

// NewEngine constructs the audio engine described by the config.
func (c *Config) NewEngine() *audio.Engine {
	return audio.NewEngine(
		audio.WithFFmpegPath(c.Audio.FFmpegPath),
		audio.WithTargetPeak(c.Audio.TargetPeakDB),
		audio.WithBitrate(c.Audio.Bitrate),
	)
}

// NewGate constructs the quality gate described by the config, or nil when
// the gate is disabled.
func (c *Config) NewGate() *syncer.Gate {
	if !c.Gate.Enabled {
		return nil
	}
	return &syncer.Gate{
		BytesPerChar:   c.Gate.BytesPerChar,
		ShortTextLen:   c.Gate.ShortTextLen,
		ShortTextBonus: c.Gate.ShortTextBonus,
	}
}
