package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. A missing file is not an error: the defaults are returned, so
// the tool runs without any configuration at all.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", cfg.LogLevel))
	}
	if cfg.Audio.FFmpegPath == "" {
		errs = append(errs, errors.New("config: audio.ffmpeg_path must not be empty"))
	}
	if cfg.Audio.TargetPeakDB > 0 {
		errs = append(errs, fmt.Errorf("config: audio.target_peak_db must be <= 0, got %g", cfg.Audio.TargetPeakDB))
	}
	if cfg.Audio.Bitrate == "" {
		errs = append(errs, errors.New("config: audio.bitrate must not be empty"))
	}
	// ffmpeg's atempo filter accepts 0.5–2.0 in a single pass; below 1.0
	// would slow speech down, which nothing here wants.
	if cfg.Audio.FastTempo < 1.0 || cfg.Audio.FastTempo > 2.0 {
		errs = append(errs, fmt.Errorf("config: audio.fast_tempo must be within [1.0, 2.0], got %g", cfg.Audio.FastTempo))
	}
	if cfg.Gate.Enabled {
		if cfg.Gate.BytesPerChar <= 0 {
			errs = append(errs, fmt.Errorf("config: quality_gate.bytes_per_char must be positive, got %d", cfg.Gate.BytesPerChar))
		}
		if cfg.Gate.ShortTextLen < 0 {
			errs = append(errs, fmt.Errorf("config: quality_gate.short_text_len must not be negative, got %d", cfg.Gate.ShortTextLen))
		}
		if cfg.Gate.ShortTextBonus < 0 {
			errs = append(errs, fmt.Errorf("config: quality_gate.short_text_bonus must not be negative, got %d", cfg.Gate.ShortTextBonus))
		}
	}

	return errors.Join(errs...)
}
