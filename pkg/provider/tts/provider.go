// Package tts defines the Provider interface for Text-to-Speech backends used
// by the soundforge generation pipeline.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or
// TTS.Monster) and presents a uniform request/response interface: one call per
// utterance, returning the complete synthesized audio. Backends differ in how
// the audio comes back (inline in the response body vs. fetched from a
// returned URL), in whether markup text is accepted, and in whether the
// service enumerates its voices or reports quota usage. Those differences are
// expressed through [Capabilities]; shared pipeline code must never branch on
// a concrete provider type.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// TextType selects how the text of a [Request] is interpreted by the backend.
type TextType string

const (
	// TextPlain is unannotated text.
	TextPlain TextType = "text"

	// TextMarkup is SSML-style markup text, only valid for providers whose
	// [Capabilities].SupportsMarkup is true.
	TextMarkup TextType = "ssml"
)

// Sentinel errors shared by all provider implementations. Backends wrap these
// with request context; callers test with [errors.Is].
var (
	// ErrAuth indicates invalid or missing credentials, or an exhausted
	// quota. Fatal to the provider's entire batch.
	ErrAuth = errors.New("tts: authentication or quota failure")

	// ErrTransient indicates a flaky backend (rate limiting, 5xx, transport
	// timeout). Callers should skip the current job and continue.
	ErrTransient = errors.New("tts: transient backend failure")

	// ErrVoiceUnknown indicates the requested voice is not part of the
	// provider's voice enumeration.
	ErrVoiceUnknown = errors.New("tts: unknown voice")
)

// Capabilities describes what a provider variant supports. The synchronizer
// uses these flags instead of type assertions.
type Capabilities struct {
	// SupportsMarkup reports whether Synthesize accepts [TextMarkup]
	// requests. Providers without markup support leave prosody effects
	// (e.g., forced fast rate) to the audio engine.
	SupportsMarkup bool

	// EnumeratesVoices reports whether the backend exposes a fixed voice
	// catalogue that ResolveVoice enforces. When false, opaque voice
	// identifiers are accepted unvalidated.
	EnumeratesVoices bool

	// ReportsUsage reports whether Usage returns live quota accounting.
	ReportsUsage bool
}

// Voice identifies a synthesis voice on a specific provider.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name, when known.
	Name string

	// Provider names the backend this voice belongs to.
	Provider string
}

// Request is one synthesis call: a single utterance for a single voice.
type Request struct {
	Text  string
	Type  TextType
	Voice Voice
}

// RawFormat describes headerless PCM audio. Raw provider output carries no
// container metadata, so the decoder must be told the layout explicitly.
type RawFormat struct {
	SampleRate int    // samples per second, e.g. 16000
	Channels   int    // 1 = mono
	Encoding   string // ffmpeg sample format name, e.g. "s16le"
}

// Result is the synthesized audio for one [Request].
type Result struct {
	// Audio is the complete audio payload. For fetch-by-URL backends the
	// provider has already retrieved it.
	Audio []byte

	// Ext is the file extension hint for the payload, including the dot
	// (".mp3", ".wav", ".pcm").
	Ext string

	// Raw is non-nil when Audio is headerless PCM.
	Raw *RawFormat

	// CharactersUsed is the number of quota characters this call consumed,
	// as reported by the backend (or the request length when the backend
	// does not report it).
	CharactersUsed int
}

// Usage is a snapshot of the account's quota accounting for the current
// billing period.
type Usage struct {
	CharactersUsed int64
	CharacterLimit int64
}

// Remaining returns the number of characters left in the current period.
func (u Usage) Remaining() int64 {
	return u.CharacterLimit - u.CharactersUsed
}

// Provider is the abstraction over any TTS backend.
//
// All methods perform blocking network I/O and honour ctx cancellation.
// Implementations are safe for sequential use from a single goroutine; the
// pipeline never calls them concurrently.
type Provider interface {
	// Name returns the provider's short name (also the pack directory
	// prefix, e.g. "elevenlabs").
	Name() string

	// Capabilities returns the provider's capability flags.
	Capabilities() Capabilities

	// Voices returns the voices known to the backend. For providers without
	// a fixed enumeration this may be a partial (public-only) catalogue.
	Voices(ctx context.Context) ([]Voice, error)

	// ResolveVoice maps a human-supplied voice name to a [Voice]. Providers
	// with EnumeratesVoices enforce their catalogue and return
	// [ErrVoiceUnknown] for anything else; providers without it may accept
	// the name as an opaque identifier.
	ResolveVoice(ctx context.Context, name string) (Voice, error)

	// Synthesize performs one synthesis call and returns the audio.
	// Failures are reported as wrapped [ErrAuth], [ErrTransient] or a plain
	// descriptive error carrying the offending request context; errors are
	// never silently dropped.
	Synthesize(ctx context.Context, req Request) (*Result, error)

	// Usage returns the backend's own quota accounting. Only meaningful
	// when Capabilities().ReportsUsage is true.
	Usage(ctx context.Context) (*Usage, error)
}

// StatusError maps an HTTP response status to the shared error taxonomy:
// 401/403 to [ErrAuth], 429 and all 5xx to [ErrTransient], anything else
// non-2xx to a plain error. Returns nil for 2xx.
//
// body should be a short excerpt of the response body for diagnostics.
func StatusError(provider string, status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %s: %w", provider, status, body, ErrAuth)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s: status %d: %s: %w", provider, status, body, ErrTransient)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", provider, status, body)
	}
}
