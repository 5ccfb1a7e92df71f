package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/MrWong99/soundforge/internal/fleet"
	"github.com/MrWong99/soundforge/pkg/provider/tts"
	"github.com/MrWong99/soundforge/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/soundforge/pkg/provider/tts/ttsmonster"
)

// Credentials holds the API keys, read from the environment only. A key may
// be empty; the matching provider then fails at construction time, which the
// fleet isolates to that provider's packs.
type Credentials struct {
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	TTSMonsterAPIKey string `env:"TTSMONSTER_API_KEY"`
}

// LoadCredentials reads the credentials from the process environment.
func LoadCredentials() (*Credentials, error) {
	creds := &Credentials{}
	if err := env.Parse(creds); err != nil {
		return nil, fmt.Errorf("config: read credentials from environment: %w", err)
	}
	return creds, nil
}

// BuildRegistry wires the provider factories for the known backends. Clients
// are only constructed for provider groups with missing work, so an unset
// API key hurts nothing until its packs actually need generation.
func BuildRegistry(cfg *Config, creds *Credentials) *fleet.Registry {
	reg := fleet.NewRegistry()

	reg.Register("elevenlabs", func() (tts.Provider, error) {
		var opts []elevenlabs.Option
		if cfg.Providers.ElevenLabs.Model != "" {
			opts = append(opts, elevenlabs.WithModel(cfg.Providers.ElevenLabs.Model))
		}
		if cfg.Providers.ElevenLabs.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(cfg.Providers.ElevenLabs.BaseURL))
		}
		return elevenlabs.New(creds.ElevenLabsAPIKey, opts...)
	})

	reg.Register("ttsm", func() (tts.Provider, error) {
		var opts []ttsmonster.Option
		if cfg.Providers.TTSMonster.BaseURL != "" {
			opts = append(opts, ttsmonster.WithBaseURL(cfg.Providers.TTSMonster.BaseURL))
		}
		return ttsmonster.New(creds.TTSMonsterAPIKey, opts...)
	})

	return reg
}
