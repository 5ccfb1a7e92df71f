// Package syncer fills the gaps in a single pack directory: for every
// manifest entry without a corresponding output file it synthesizes the
// audio, normalizes it through the audio engine and applies the quality gate.
//
// "Missing" is defined purely by filesystem existence at the computed target
// path, which makes a pass idempotent by construction: re-running against a
// directory only fills gaps, never re-synthesizes or overwrites. The files
// themselves are the generation ledger.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/soundforge/internal/audio"
	"github.com/MrWong99/soundforge/internal/manifest"
	"github.com/MrWong99/soundforge/internal/observe"
	"github.com/MrWong99/soundforge/internal/pack"
	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

// Engine is the audio mastering dependency of the Syncer. Satisfied by
// [audio.Engine]; tests substitute a fake.
type Engine interface {
	// Master normalizes src into dst. See [audio.Engine.Master].
	Master(ctx context.Context, src, dst string, format audio.SourceFormat, opts audio.MasterOptions) error
}

// Tally counts job outcomes for one synchronization pass. Purely additive;
// reset each run.
type Tally struct {
	// Created counts files generated and written.
	Created int

	// Skipped counts entries whose file already existed.
	Skipped int

	// SkippedTransient counts jobs skipped because the backend was flaky.
	SkippedTransient int

	// Rejected counts files discarded by the quality gate. A rejection is a
	// recorded outcome, not an error.
	Rejected int
}

// Add accumulates o into t.
func (t *Tally) Add(o Tally) {
	t.Created += o.Created
	t.Skipped += o.Skipped
	t.SkippedTransient += o.SkippedTransient
	t.Rejected += o.Rejected
}

// Job is one pending synthesis: a missing (directory, entry) pair together
// with the text that will actually be sent.
type Job struct {
	Entry  manifest.Entry
	Target string

	// Text and Type are what goes to the provider: the entry's markup text
	// when present and supported, the plain text otherwise.
	Text string
	Type tts.TextType

	// SimulateFast is set when dropped markup requested a fast rate that
	// the audio engine must approximate with a tempo transform.
	SimulateFast bool
}

// fastRateMarker is the markup fragment that requests a fast speaking rate.
const fastRateMarker = "rate='fast'"

// Missing returns the jobs for every manifest entry without an existing file
// under dir's sounds directory, in manifest order. Text selection honours the
// provider capabilities in caps.
func Missing(dir pack.Dir, entries []manifest.Entry, caps tts.Capabilities) []Job {
	var jobs []Job
	for _, e := range entries {
		target := filepath.Join(dir.SoundsDir(), filepath.FromSlash(manifest.NormalizePath(e.Path)))
		if _, err := os.Stat(target); err == nil {
			continue
		}

		job := Job{
			Entry:  e,
			Target: target,
			Text:   e.TTSText,
			Type:   tts.TextPlain,
		}
		if e.SSMLText != "" {
			if caps.SupportsMarkup {
				job.Text = e.SSMLText
				job.Type = tts.TextMarkup
			} else if containsFastRate(e.SSMLText) {
				job.SimulateFast = true
			}
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// containsFastRate matches the marker the bootstrap normalizer emits.
func containsFastRate(ssml string) bool {
	return strings.Contains(ssml, fastRateMarker)
}

// Syncer synchronizes one pack directory against the manifest.
type Syncer struct {
	// Provider performs synthesis for this pack's backend.
	Provider tts.Provider

	// Engine masters provider output into the final files.
	Engine Engine

	// Gate is the quality check applied to freshly mastered files.
	// nil disables it.
	Gate *Gate

	// FastTempo is the atempo multiplier used to simulate a fast markup
	// rate on providers without markup support. Zero means no simulation.
	FastTempo float64

	// Metrics receives per-job counters. nil is valid.
	Metrics *observe.Metrics

	// Log receives per-job diagnostics. nil falls back to slog.Default.
	Log *slog.Logger
}

// Sync runs the synchronization state machine for dir: validate the audio
// root, enumerate missing entries and process them one at a time.
//
// A transient provider failure skips the single job and continues. Any other
// provider, analysis or encode failure aborts the directory and is returned
// with the offending job's path and input text; already-written files stay in
// place, so a re-run resumes where this one stopped.
func (s *Syncer) Sync(ctx context.Context, dir pack.Dir, voice tts.Voice, entries []manifest.Entry) (Tally, error) {
	log := s.log().With("pack", dir.Name)
	var tally Tally

	if fi, err := os.Stat(dir.SoundsDir()); err != nil || !fi.IsDir() {
		return tally, fmt.Errorf("syncer: %s: no %q subdirectory", dir.Name, pack.SoundsDirName)
	}

	caps := s.Provider.Capabilities()
	jobs := Missing(dir, entries, caps)
	tally.Skipped = len(entries) - len(jobs)

	for _, job := range jobs {
		outcome, err := s.processJob(ctx, job, voice)
		switch {
		case errors.Is(err, tts.ErrTransient):
			tally.SkippedTransient++
			s.Metrics.RecordSynth(ctx, s.Provider.Name(), "transient", 0)
			log.Warn("transient backend failure, skipping job",
				"path", job.Entry.Path,
				"err", err,
			)
		case err != nil:
			s.Metrics.RecordSynth(ctx, s.Provider.Name(), "error", 0)
			return tally, fmt.Errorf("syncer: %s: path %q, text %q: %w",
				dir.Name, job.Entry.Path, job.Text, err)
		case outcome.rejected:
			tally.Rejected++
			s.Metrics.RecordRejected(ctx, s.Provider.Name())
			log.Warn("quality gate rejected file",
				"path", job.Entry.Path,
				"size", outcome.size,
				"max_allowed", outcome.maxAllowed,
			)
		default:
			tally.Created++
			s.Metrics.RecordSynth(ctx, s.Provider.Name(), "ok", outcome.characters)
			s.Metrics.RecordCreated(ctx, s.Provider.Name())
			log.Info("created file",
				"path", job.Entry.Path,
				"created", tally.Created,
				"pending", len(jobs)-tally.Created-tally.SkippedTransient-tally.Rejected,
			)
		}
	}

	return tally, nil
}

// jobOutcome reports what happened to one processed job.
type jobOutcome struct {
	rejected   bool
	size       int64
	maxAllowed int64
	characters int
}

// processJob synthesizes, masters and gates a single job. The staged provider
// output lives in a temporary file that is removed on every exit path.
func (s *Syncer) processJob(ctx context.Context, job Job, voice tts.Voice) (jobOutcome, error) {
	res, err := s.Provider.Synthesize(ctx, tts.Request{
		Text:  job.Text,
		Type:  job.Type,
		Voice: voice,
	})
	if err != nil {
		return jobOutcome{}, err
	}

	if err := os.MkdirAll(filepath.Dir(job.Target), 0o755); err != nil {
		return jobOutcome{}, fmt.Errorf("create output directory: %w", err)
	}

	staged, err := stageAudio(res)
	if err != nil {
		return jobOutcome{}, err
	}
	defer os.Remove(staged)

	var opts audio.MasterOptions
	if job.SimulateFast {
		opts.Tempo = s.FastTempo
	}
	if err := s.Engine.Master(ctx, staged, job.Target, audio.SourceFormatFor(res), opts); err != nil {
		return jobOutcome{}, err
	}

	outcome := jobOutcome{characters: res.CharactersUsed}
	if s.Gate != nil {
		fi, err := os.Stat(job.Target)
		if err != nil {
			return jobOutcome{}, fmt.Errorf("stat output: %w", err)
		}
		outcome.size = fi.Size()
		outcome.maxAllowed = s.Gate.MaxAllowedBytes(len(job.Text))
		if outcome.size > outcome.maxAllowed {
			if err := os.Remove(job.Target); err != nil {
				return jobOutcome{}, fmt.Errorf("remove rejected output: %w", err)
			}
			outcome.rejected = true
		}
	}
	return outcome, nil
}

// stageAudio writes provider output to a job-scoped temporary file for the
// two-pass analysis. The caller removes it.
func stageAudio(res *tts.Result) (string, error) {
	tmp, err := os.CreateTemp("", "soundforge-src-*"+res.Ext)
	if err != nil {
		return "", fmt.Errorf("stage provider output: %w", err)
	}
	if _, err := tmp.Write(res.Audio); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage provider output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage provider output: %w", err)
	}
	return tmp.Name(), nil
}

func (s *Syncer) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
