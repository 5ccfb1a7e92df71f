// Package ttsmonster provides a TTS.Monster-backed TTS provider. It
// implements the tts.Provider interface as the fetch-by-URL variant: the
// synthesis call returns a URL, and the audio is retrieved with a second
// request.
//
// TTS.Monster has no markup support; callers that want prosody effects such
// as a forced fast rate must approximate them in the audio engine. Voice
// identifiers may be public (resolvable by name against the voice catalogue)
// or private (opaque IDs that are accepted unvalidated).
package ttsmonster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.tts.monster"

	maxErrBody = 512
)

// Option is a functional option for configuring the TTS.Monster Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client, used both for API calls and for
// fetching generated audio.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the TTS.Monster API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates a new TTS.Monster Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ttsmonster: apiKey must not be empty: %w", tts.ErrAuth)
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "ttsm", the pack directory prefix used for TTS.Monster packs.
func (p *Provider) Name() string { return "ttsm" }

// Capabilities reports no markup support and no enforced voice enumeration.
func (p *Provider) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		SupportsMarkup:   false,
		EnumeratesVoices: false,
		ReportsUsage:     true,
	}
}

// generateRequest is the JSON payload for POST /generate.
type generateRequest struct {
	VoiceID string `json:"voice_id"`
	Message string `json:"message"`
}

// generateResponse is the JSON response from POST /generate.
type generateResponse struct {
	URL            string `json:"url"`
	CharacterUsage int    `json:"characterUsage"`
}

// Synthesize generates the utterance and fetches the resulting audio from the
// URL the backend returns.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.Type == tts.TextMarkup {
		return nil, errors.New("ttsmonster: markup text is not supported")
	}
	if req.Voice.ID == "" {
		return nil, errors.New("ttsmonster: voice ID must not be empty")
	}

	var gen generateResponse
	err := p.postJSON(ctx, "/generate", generateRequest{
		VoiceID: req.Voice.ID,
		Message: req.Text,
	}, &gen)
	if err != nil {
		return nil, err
	}
	if gen.URL == "" {
		return nil, errors.New("ttsmonster: no audio URL in generate response")
	}

	audio, err := p.fetchAudio(ctx, gen.URL)
	if err != nil {
		return nil, err
	}

	return &tts.Result{
		Audio:          audio,
		Ext:            audioExt(gen.URL),
		CharactersUsed: gen.CharacterUsage,
	}, nil
}

// fetchAudio retrieves the generated audio file from u.
func (p *Provider) fetchAudio(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ttsmonster: build audio fetch: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ttsmonster: fetch audio: %v: %w", err, tts.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, tts.StatusError("ttsmonster", resp.StatusCode, readErrBody(resp.Body))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ttsmonster: read audio: %v: %w", err, tts.ErrTransient)
	}
	if len(audio) == 0 {
		return nil, errors.New("ttsmonster: empty audio at " + u)
	}
	return audio, nil
}

// voicesResponse is the JSON response from POST /voices.
type voicesResponse struct {
	Voices       []voiceEntry `json:"voices"`
	CustomVoices []voiceEntry `json:"customVoices"`
}

// voiceEntry is a single voice from the TTS.Monster catalogue.
type voiceEntry struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

// Voices returns the public and custom voices visible to the API key. The
// catalogue is not exhaustive: private voice IDs outside it are still valid.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	var vr voicesResponse
	if err := p.postJSON(ctx, "/voices", struct{}{}, &vr); err != nil {
		return nil, err
	}

	voices := make([]tts.Voice, 0, len(vr.Voices)+len(vr.CustomVoices))
	for _, v := range append(vr.Voices, vr.CustomVoices...) {
		voices = append(voices, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: p.Name(),
		})
	}
	return voices, nil
}

// ResolveVoice resolves name against the visible catalogue. Names that do not
// match any catalogue entry are assumed to be private voice IDs and accepted
// as-is, with a logged assumption, since the backend cannot enumerate them.
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

	slog.Warn("ttsmonster: voice not in catalogue, assuming private voice ID",
		"voice", name,
	)
	return tts.Voice{ID: name, Provider: p.Name()}, nil
}

// userResponse is the JSON response from POST /user.
type userResponse struct {
	CharacterUsage     int64 `json:"character_usage"`
	CharacterAllowance int64 `json:"character_allowance"`
}

// Usage returns the account's character accounting for the current period.
func (p *Provider) Usage(ctx context.Context) (*tts.Usage, error) {
	var ur userResponse
	if err := p.postJSON(ctx, "/user", struct{}{}, &ur); err != nil {
		return nil, err
	}
	return &tts.Usage{
		CharactersUsed: ur.CharacterUsage,
		CharacterLimit: ur.CharacterAllowance,
	}, nil
}

// postJSON performs an authenticated POST against path with a JSON body and
// decodes the JSON response into out.
func (p *Provider) postJSON(ctx context.Context, apiPath string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ttsmonster: marshal %s request: %w", apiPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+apiPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ttsmonster: build request %s: %w", apiPath, err)
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ttsmonster: post %s: %v: %w", apiPath, err, tts.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tts.StatusError("ttsmonster", resp.StatusCode, readErrBody(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ttsmonster: decode %s: %w", apiPath, err)
	}
	return nil
}

// audioExt returns the extension of the audio file referenced by u,
// defaulting to ".wav" when the URL carries none.
func audioExt(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ".wav"
	}
	if ext := path.Ext(parsed.Path); ext != "" {
		return ext
	}
	return ".wav"
}

// readErrBody reads a short excerpt of a response body for error messages.
func readErrBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrBody))
	return strings.TrimSpace(string(b))
}
