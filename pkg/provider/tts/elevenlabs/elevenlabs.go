// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// synchronous REST synthesis API. It implements the tts.Provider interface as
// the inline-stream variant: the synthesis response body is the audio itself.
//
// Audio is requested as raw 16 kHz mono PCM (output_format=pcm_16000), so the
// returned tts.Result carries an explicit RawFormat for the decoder.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"
	outputFormat   = "pcm_16000"

	// maxErrBody caps how much of an error response body is kept for
	// diagnostics.
	maxErrBody = 512
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_multilingual_v2").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the ElevenLabs REST API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: apiKey must not be empty: %w", tts.ErrAuth)
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "elevenlabs".
func (p *Provider) Name() string { return "elevenlabs" }

// Capabilities reports inline markup support, an enforced voice catalogue and
// live usage reporting.
func (p *Provider) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		SupportsMarkup:   true,
		EnumeratesVoices: true,
		ReportsUsage:     true,
	}
}

// synthesisRequest is the JSON payload for POST /v1/text-to-speech/{voice}.
type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize performs one synthesis call. Markup requests pass the SSML tags
// through unchanged; the API interprets supported tags inline.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.Voice.ID == "" {
		return nil, errors.New("elevenlabs: voice ID must not be empty")
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", p.baseURL, req.Voice.ID, outputFormat)
	payload, err := json.Marshal(synthesisRequest{
		Text:    req.Text,
		ModelID: p.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %v: %w", err, tts.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, tts.StatusError("elevenlabs", resp.StatusCode, readErrBody(resp.Body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %v: %w", err, tts.ErrTransient)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio response")
	}

	return &tts.Result{
		Audio: audio,
		Ext:   ".pcm",
		Raw: &tts.RawFormat{
			SampleRate: 16000,
			Channels:   1,
			Encoding:   "s16le",
		},
		CharactersUsed: len(req.Text),
	}, nil
}

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []voiceEntry `json:"voices"`
}

// voiceEntry is a single voice from the ElevenLabs catalogue.
type voiceEntry struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

// Voices returns the full voice catalogue for the configured API key.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	var vr voicesResponse
	if err := p.getJSON(ctx, "/v1/voices", &vr); err != nil {
		return nil, err
	}

	voices := make([]tts.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		voices = append(voices, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: p.Name(),
		})
	}
	return voices, nil
}

// ResolveVoice resolves name against the voice catalogue, matching the
// human-readable name case-insensitively or the voice ID exactly. Anything
// outside the catalogue is rejected with tts.ErrVoiceUnknown.
func (p *Provider) ResolveVoice(ctx context.Context, name string) (tts.Voice, error) {
	voices, err := p.Voices(ctx)
	if err != nil {
		return tts.Voice{}, err
	}
	for _, v := range voices {
		if strings.EqualFold(v.Name, name) || v.ID == name {
			return v, nil
		}
	}
	return tts.Voice{}, fmt.Errorf("elevenlabs: voice %q: %w", name, tts.ErrVoiceUnknown)
}

// subscriptionResponse is the subset of GET /v1/user/subscription we consume.
type subscriptionResponse struct {
	CharacterCount int64 `json:"character_count"`
	CharacterLimit int64 `json:"character_limit"`
}

// Usage returns the subscription's character accounting.
func (p *Provider) Usage(ctx context.Context) (*tts.Usage, error) {
	var sub subscriptionResponse
	if err := p.getJSON(ctx, "/v1/user/subscription", &sub); err != nil {
		return nil, err
	}
	return &tts.Usage{
		CharactersUsed: sub.CharacterCount,
		CharacterLimit: sub.CharacterLimit,
	}, nil
}

// getJSON performs an authenticated GET against path and decodes the JSON
// response into out.
func (p *Provider) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("elevenlabs: build request %s: %w", path, err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs: get %s: %v: %w", path, err, tts.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tts.StatusError("elevenlabs", resp.StatusCode, readErrBody(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("elevenlabs: decode %s: %w", path, err)
	}
	return nil
}

// readErrBody reads a short excerpt of a response body for error messages.
func readErrBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrBody))
	return strings.TrimSpace(string(b))
}
