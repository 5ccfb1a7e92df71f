// Package audio implements the loudness analysis and normalization engine for
// generated speech files.
//
// The engine drives the ffmpeg binary as a black box in two passes. Pass one
// decodes the source and measures its peak amplitude with the volumedetect
// filter; pass two re-decodes the same source, applies a gain that lifts the
// peak to the target margin (and optionally an atempo speed simulation), and
// encodes the result as constant-bitrate MP3. No single ffmpeg filter
// reliably maximizes loudness without clipping or over-compressing short
// speech clips — loudnorm and dynaudnorm both misbehave here — which is why
// the peak is measured explicitly first.
//
// Output is always CBR: the consuming game engine's audio loader cannot
// handle VBR framing.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

// Defaults for a newly constructed Engine.
const (
	// DefaultTargetPeakDB leaves 0.5 dB of headroom below full scale for
	// clipping safety.
	DefaultTargetPeakDB = -0.5

	// DefaultBitrate is the fixed CBR encode bitrate.
	DefaultBitrate = "128k"
)

// Engine failure sentinels. Both are fatal to a single job, never to a run.
var (
	// ErrNoPeak indicates the analysis pass produced no parseable
	// max_volume figure (e.g., silent or zero-length input).
	ErrNoPeak = errors.New("audio: no max_volume in analysis output")

	// ErrEncode indicates the transcoding pass could not produce the
	// output file.
	ErrEncode = errors.New("audio: encode failed")
)

// maxVolumeRe matches the volumedetect summary line on ffmpeg's stderr.
var maxVolumeRe = regexp.MustCompile(`max_volume:\s*(-?\d+(?:\.\d+)?) dB`)

// SourceFormat describes how a source file must be decoded. The zero value
// means the file is a self-describing container and needs no explicit
// parameters.
type SourceFormat struct {
	// Encoding is the ffmpeg raw sample format name ("s16le"). Non-empty
	// Encoding marks the source as headerless raw audio.
	Encoding string

	// SampleRate and Channels complete the raw decode parameters. Ignored
	// for container sources.
	SampleRate int
	Channels   int
}

// SourceFormatFor derives the decode parameters for a provider result.
func SourceFormatFor(res *tts.Result) SourceFormat {
	if res.Raw == nil {
		return SourceFormat{}
	}
	return SourceFormat{
		Encoding:   res.Raw.Encoding,
		SampleRate: res.Raw.SampleRate,
		Channels:   res.Raw.Channels,
	}
}

// DecodeArgs returns the ffmpeg input arguments for a source in this format,
// excluding the "-i <file>" pair itself.
func (f SourceFormat) DecodeArgs() []string {
	if f.Encoding == "" {
		return nil
	}
	return []string{
		"-f", f.Encoding,
		"-ar", strconv.Itoa(f.SampleRate),
		"-ac", strconv.Itoa(f.Channels),
	}
}

// MasterOptions adjust the transform pass of [Engine.Master].
type MasterOptions struct {
	// Tempo applies an atempo speed multiplier when > 0 and != 1. Used to
	// approximate a fast markup rate on providers without markup support.
	Tempo float64
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithFFmpegPath overrides the ffmpeg binary location.
func WithFFmpegPath(path string) Option {
	return func(e *Engine) {
		e.ffmpegPath = path
	}
}

// WithTargetPeak sets the target peak margin in dBFS (must be <= 0).
func WithTargetPeak(db float64) Option {
	return func(e *Engine) {
		e.targetPeakDB = db
	}
}

// WithBitrate sets the CBR encode bitrate (e.g., "128k").
func WithBitrate(bitrate string) Option {
	return func(e *Engine) {
		e.bitrate = bitrate
	}
}

// Engine measures and normalizes audio files through ffmpeg. Construct with
// [NewEngine]; the zero value is not usable.
type Engine struct {
	ffmpegPath   string
	targetPeakDB float64
	bitrate      string
}

// NewEngine returns an Engine with the package defaults applied.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		ffmpegPath:   "ffmpeg",
		targetPeakDB: DefaultTargetPeakDB,
		bitrate:      DefaultBitrate,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// GainFor returns the gain in dB that lifts a measured peak to the target
// margin: zero when the peak already meets or exceeds the margin (the engine
// never attenuates), exactly target-peak otherwise.
func GainFor(peakDB, targetDB float64) float64 {
	if peakDB >= targetDB {
		return 0
	}
	return targetDB - peakDB
}

// ParsePeak extracts the max_volume figure from volumedetect output. Returns
// ErrNoPeak when the output contains no parseable result.
func ParsePeak(output string) (float64, error) {
	m := maxVolumeRe.FindStringSubmatch(output)
	if m == nil {
		return 0, ErrNoPeak
	}
	peak, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("audio: parse max_volume %q: %w", m[1], ErrNoPeak)
	}
	return peak, nil
}

// MeasurePeak runs the analysis pass: decode src and return its peak
// amplitude in dBFS. Fails with a wrapped ErrNoPeak when ffmpeg emits no
// usable volumedetect summary.
func (e *Engine) MeasurePeak(ctx context.Context, src string, format SourceFormat) (float64, error) {
	args := append(format.DecodeArgs(),
		"-i", src,
		"-af", "volumedetect",
		"-f", "null",
		os.DevNull,
	)

	// volumedetect reports on stderr, not stdout.
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stderr, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("audio: analyze %s: %w: %s", src, err, tail(string(stderr)))
	}

	peak, err := ParsePeak(string(stderr))
	if err != nil {
		return 0, fmt.Errorf("audio: analyze %s: %w", src, err)
	}
	return peak, nil
}

// FilterChain builds the -af argument for the transform pass. Order matters:
// tempo first, then gain. Returns "" when no filter is needed.
func FilterChain(gainDB, tempo float64) string {
	var filters []string
	if tempo > 0 && tempo != 1 {
		filters = append(filters, fmt.Sprintf("atempo=%.2f", tempo))
	}
	if gainDB > 0 {
		filters = append(filters, fmt.Sprintf("volume=%.4fdB", gainDB))
	}
	return strings.Join(filters, ",")
}

// Master runs both passes: measure the peak of src, then re-decode src,
// apply gain (and the optional tempo transform) and encode to dst as CBR MP3.
//
// The encode writes to a temporary file next to dst and promotes it with a
// rename only on success, so a failed job never leaves a partial file at the
// final path. The temporary file is removed on every failure path.
func (e *Engine) Master(ctx context.Context, src, dst string, format SourceFormat, opts MasterOptions) error {
	peak, err := e.MeasurePeak(ctx, src, format)
	if err != nil {
		return err
	}
	gain := GainFor(peak, e.targetPeakDB)

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".soundforge-*"+filepath.Ext(dst))
	if err != nil {
		return fmt.Errorf("audio: stage output for %s: %w", dst, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("audio: stage output for %s: %w", dst, err)
	}

	args := append(format.DecodeArgs(), "-i", src)
	if chain := FilterChain(gain, opts.Tempo); chain != "" {
		args = append(args, "-af", chain)
	}
	args = append(args,
		"-codec:a", "libmp3lame",
		"-b:a", e.bitrate,
		"-y", tmpPath,
	)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stderr, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("audio: encode %s: %w: %v: %s", dst, ErrEncode, err, tail(string(stderr)))
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("audio: promote %s: %w", dst, err)
	}
	return nil
}

// tail returns the last few lines of ffmpeg output for error messages.
func tail(s string) string {
	const maxLines = 4
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, " | ")
}
