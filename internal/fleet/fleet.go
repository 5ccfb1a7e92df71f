// Package fleet orchestrates synchronization across every pack directory
// under a root: it discovers packs, aggregates the missing work per provider
// group, gates cost-incurring synthesis behind an operator confirmation and
// then drives the pack synchronizer one directory at a time, isolating
// per-directory failures so one broken pack cannot abort the whole run.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MrWong99/soundforge/internal/manifest"
	"github.com/MrWong99/soundforge/internal/observe"
	"github.com/MrWong99/soundforge/internal/pack"
	"github.com/MrWong99/soundforge/internal/syncer"
	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

// Missing is the aggregate missing work for one provider group.
type Missing struct {
	// Files is the number of manifest entries without an output file,
	// summed across the group's pack directories.
	Files int

	// Characters is the total plain-text length of those entries — the
	// cost figure presented to the operator.
	Characters int
}

// add accumulates o into m.
func (m *Missing) add(o Missing) {
	m.Files += o.Files
	m.Characters += o.Characters
}

// GroupReport is the outcome for one provider group.
type GroupReport struct {
	Provider string
	Missing  Missing
	Dirs     int
	Failures int
	Tally    syncer.Tally
}

// Report is the aggregate outcome of a fleet run.
type Report struct {
	Groups []GroupReport
	Total  syncer.Tally

	// Aborted is true when the operator declined the confirmation prompt.
	Aborted bool
}

// Failures sums the per-group directory failure counts.
func (r Report) Failures() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Failures
	}
	return n
}

// ConfirmFunc decides whether cost-incurring synthesis may proceed, given the
// per-provider missing work. Injected so the core never blocks on real input.
type ConfirmFunc func(missing map[string]Missing) bool

// Orchestrator drives a full fleet run. The manifest is read once and shared
// read-only across all directory passes.
type Orchestrator struct {
	// Manifest is the shared entry list.
	Manifest []manifest.Entry

	// Registry supplies provider factories per pack prefix.
	Registry *Registry

	// Engine and Gate are handed to each pack synchronizer.
	Engine syncer.Engine
	Gate   *syncer.Gate

	// FastTempo is the speed-simulation multiplier for providers without
	// markup support.
	FastTempo float64

	// Confirm gates synthesis when missing work is nonzero. nil refuses,
	// keeping an unwired orchestrator from spending money.
	Confirm ConfirmFunc

	// LogMissing logs every individual missing file path during the count.
	LogMissing bool

	// Metrics receives run counters. nil is valid.
	Metrics *observe.Metrics

	// Log receives run diagnostics. nil falls back to slog.Default.
	Log *slog.Logger
}

// Run synchronizes every pack directory under root. Directory-level failures
// are logged and counted but do not stop the run; Run itself only fails when
// the root cannot be enumerated at all.
func (o *Orchestrator) Run(ctx context.Context, root string) (Report, error) {
	log := o.log()

	dirs, err := pack.Discover(root)
	if err != nil {
		return Report{}, fmt.Errorf("fleet: %w", err)
	}

	groups := groupByProvider(dirs)
	providers := sortedKeys(groups)

	// Count missing work per group before any network traffic.
	missing := make(map[string]Missing, len(groups))
	totalFiles := 0
	for _, provider := range providers {
		var m Missing
		for _, dir := range groups[provider] {
			m.add(o.countMissing(dir))
		}
		missing[provider] = m
		totalFiles += m.Files
		log.Info("missing work",
			"provider", provider,
			"dirs", len(groups[provider]),
			"files", m.Files,
			"characters", m.Characters,
		)
	}

	if totalFiles == 0 {
		log.Info("no files missing in any pack directory, nothing to do")
		return Report{Groups: emptyGroupReports(providers, groups, missing)}, nil
	}

	if o.Confirm == nil || !o.Confirm(missing) {
		log.Info("run aborted before synthesis")
		report := Report{Groups: emptyGroupReports(providers, groups, missing)}
		report.Aborted = true
		return report, nil
	}

	var report Report
	for _, provider := range providers {
		group := GroupReport{
			Provider: provider,
			Missing:  missing[provider],
			Dirs:     len(groups[provider]),
		}
		if group.Missing.Files == 0 {
			// Nothing to generate; do not even construct the client.
			report.Groups = append(report.Groups, group)
			continue
		}

		o.runGroup(ctx, &group, groups[provider])
		report.Groups = append(report.Groups, group)
		report.Total.Add(group.Tally)
	}

	log.Info("fleet run finished",
		"created", report.Total.Created,
		"skipped", report.Total.Skipped,
		"skipped_transient", report.Total.SkippedTransient,
		"rejected", report.Total.Rejected,
		"failed_dirs", report.Failures(),
	)
	return report, nil
}

// runGroup constructs the group's provider and synchronizes its directories,
// isolating every per-directory failure.
func (o *Orchestrator) runGroup(ctx context.Context, group *GroupReport, dirs []pack.Dir) {
	log := o.log().With("provider", group.Provider)

	provider, err := o.Registry.Create(group.Provider)
	if err != nil {
		// Credential/configuration failure is fatal to this provider's
		// entire batch, but sibling groups still run.
		log.Error("provider unavailable, skipping its packs", "dirs", group.Dirs, "err", err)
		group.Failures = group.Dirs
		return
	}

	if provider.Capabilities().ReportsUsage {
		if usage, err := provider.Usage(ctx); err != nil {
			log.Warn("could not read quota usage", "err", err)
		} else {
			log.Info("account quota",
				"used", usage.CharactersUsed,
				"limit", usage.CharacterLimit,
				"remaining", usage.Remaining(),
			)
		}
	}

	for _, dir := range dirs {
		voice, err := provider.ResolveVoice(ctx, dir.Voice)
		if err != nil {
			log.Error("cannot resolve voice, skipping pack",
				"pack", dir.Name,
				"voice", dir.Voice,
				"err", err,
			)
			group.Failures++
			continue
		}

		s := &syncer.Syncer{
			Provider:  provider,
			Engine:    o.Engine,
			Gate:      o.Gate,
			FastTempo: o.FastTempo,
			Metrics:   o.Metrics,
			Log:       o.log(),
		}
		tally, err := s.Sync(ctx, dir, voice, o.Manifest)
		group.Tally.Add(tally)
		if err != nil {
			log.Error("pack synchronization aborted", "pack", dir.Name, "err", err)
			group.Failures++
			continue
		}
		log.Info("pack synchronized",
			"pack", dir.Name,
			"created", tally.Created,
			"skipped", tally.Skipped,
			"skipped_transient", tally.SkippedTransient,
			"rejected", tally.Rejected,
		)
	}
}

// countMissing counts dir's missing entries and their character cost.
func (o *Orchestrator) countMissing(dir pack.Dir) Missing {
	var m Missing
	// Capability flags do not change which files are missing, only the
	// text selection, so counting uses the zero value.
	for _, job := range syncer.Missing(dir, o.Manifest, tts.Capabilities{}) {
		m.Files++
		m.Characters += len(job.Entry.TTSText)
		if o.LogMissing {
			o.log().Info("missing file", "path", job.Target)
		}
	}
	return m
}

func groupByProvider(dirs []pack.Dir) map[string][]pack.Dir {
	groups := make(map[string][]pack.Dir)
	for _, d := range dirs {
		groups[d.Provider] = append(groups[d.Provider], d)
	}
	return groups
}

func sortedKeys(m map[string][]pack.Dir) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func emptyGroupReports(providers []string, groups map[string][]pack.Dir, missing map[string]Missing) []GroupReport {
	reports := make([]GroupReport, 0, len(providers))
	for _, p := range providers {
		reports = append(reports, GroupReport{
			Provider: p,
			Missing:  missing[p],
			Dirs:     len(groups[p]),
		})
	}
	return reports
}

func (o *Orchestrator) log() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}
