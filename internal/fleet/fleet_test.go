package fleet_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/soundforge/internal/audio"
	"github.com/MrWong99/soundforge/internal/fleet"
	"github.com/MrWong99/soundforge/internal/manifest"
	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

type fakeProvider struct {
	name         string
	synthCalls   int
	resolveErr   error
	reportsUsage bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Capabilities() tts.Capabilities {
	return tts.Capabilities{ReportsUsage: p.reportsUsage}
}

func (p *fakeProvider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return nil, nil
}

func (p *fakeProvider) ResolveVoice(ctx context.Context, name string) (tts.Voice, error) {
	if p.resolveErr != nil {
		return tts.Voice{}, p.resolveErr
	}
	return tts.Voice{ID: name, Name: name, Provider: p.name}, nil
}

func (p *fakeProvider) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	p.synthCalls++
	return &tts.Result{Audio: bytes.Repeat([]byte{0x33}, 32), Ext: ".wav"}, nil
}

func (p *fakeProvider) Usage(ctx context.Context) (*tts.Usage, error) {
	return &tts.Usage{CharactersUsed: 10, CharacterLimit: 100}, nil
}

type fakeEngine struct{}

func (fakeEngine) Master(ctx context.Context, src, dst string, format audio.SourceFormat, opts audio.MasterOptions) error {
	return os.WriteFile(dst, []byte("mastered"), 0o644)
}

func mkPack(t *testing.T, root, name string, files ...string) {
	t.Helper()
	sounds := filepath.Join(root, name, "sounds")
	if err := os.MkdirAll(sounds, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(sounds, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func registryWith(t *testing.T, providers map[string]*fakeProvider) *fleet.Registry {
	t.Helper()
	reg := fleet.NewRegistry()
	for prefix, p := range providers {
		reg.Register(prefix, func() (tts.Provider, error) { return p, nil })
	}
	return reg
}

var testManifest = []manifest.Entry{
	{Path: "chaos.mp3", TTSText: "chaos"},
	{Path: "alch.mp3", TTSText: "alchemy"},
}

func TestRun_CountsAndConfirmsBeforeSynthesis(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mkPack(t, root, "prova-Voice1", "chaos.mp3") // alch.mp3 missing
	mkPack(t, root, "provb-Voice2", "chaos.mp3", "alch.mp3")

	provA := &fakeProvider{name: "prova"}
	reg := registryWith(t, map[string]*fakeProvider{"prova": provA})
	reg.Register("provb", func() (tts.Provider, error) {
		t.Error("provider without missing work must not be constructed")
		return nil, errors.New("unreachable")
	})

	confirmCalls := 0
	orch := &fleet.Orchestrator{
		Manifest: testManifest,
		Registry: reg,
		Engine:   fakeEngine{},
		Confirm: func(missing map[string]fleet.Missing) bool {
			confirmCalls++
			if provA.synthCalls != 0 {
				t.Error("synthesis must not start before confirmation")
			}
			if m := missing["prova"]; m.Files != 1 || m.Characters != len("alchemy") {
				t.Errorf(`missing["prova"] = %+v`, m)
			}
			if m := missing["provb"]; m.Files != 0 {
				t.Errorf(`missing["provb"] = %+v, want no files`, m)
			}
			return true
		},
	}

	report, err := orch.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if confirmCalls != 1 {
		t.Errorf("confirm called %d times, want 1", confirmCalls)
	}
	if report.Total.Created != 1 || report.Total.Skipped != 1 {
		t.Errorf("total tally = %+v, want Created=1 Skipped=1", report.Total)
	}
	if provA.synthCalls != 1 {
		t.Errorf("provider synthesized %d times, want 1", provA.synthCalls)
	}
}

func TestRun_DeclinedConfirmationAborts(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mkPack(t, root, "prova-Voice1")

	provA := &fakeProvider{name: "prova"}
	orch := &fleet.Orchestrator{
		Manifest: testManifest,
		Registry: registryWith(t, map[string]*fakeProvider{"prova": provA}),
		Engine:   fakeEngine{},
		Confirm:  func(map[string]fleet.Missing) bool { return false },
	}

	report, err := orch.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Aborted {
		t.Error("report.Aborted = false, want true")
	}
	if provA.synthCalls != 0 {
		t.Errorf("declined run still synthesized %d times", provA.synthCalls)
	}
}

func TestRun_NilConfirmRefuses(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mkPack(t, root, "prova-Voice1")

	provA := &fakeProvider{name: "prova"}
	orch := &fleet.Orchestrator{
		Manifest: testManifest,
		Registry: registryWith(t, map[string]*fakeProvider{"prova": provA}),
		Engine:   fakeEngine{},
	}

	report, err := orch.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Aborted || provA.synthCalls != 0 {
		t.Errorf("nil Confirm must refuse; report=%+v calls=%d", report, provA.synthCalls)
	}
}

func TestRun_NothingMissingSkipsConfirmation(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mkPack(t, root, "prova-Voice1", "chaos.mp3", "alch.mp3")

	orch := &fleet.Orchestrator{
		Manifest: testManifest,
		Registry: registryWith(t, map[string]*fakeProvider{"prova": {name: "prova"}}),
		Engine:   fakeEngine{},
		Confirm: func(map[string]fleet.Missing) bool {
			t.Error("confirm must not be called when nothing is missing")
			return false
		},
	}

	report, err := orch.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aborted {
		t.Error("a run with nothing to do is not an abort")
	}
}

func TestRun_ProviderFailureIsolatedToGroup(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mkPack(t, root, "broken-Voice1")
	mkPack(t, root, "broken-Voice2")
	mkPack(t, root, "prova-Voice1")

	provA := &fakeProvider{name: "prova"}
	reg := registryWith(t, map[string]*fakeProvider{"prova": provA})
	reg.Register("broken", func() (tts.Provider, error) {
		return nil, errors.New("missing api key")
	})

	orch := &fleet.Orchestrator{
		Manifest: testManifest,
		Registry: reg,
		Engine:   fakeEngine{},
		Confirm:  func(map[string]fleet.Missing) bool { return true },
	}

	report, err := orch.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failures() != 2 {
		t.Errorf("Failures() = %d, want both broken dirs counted", report.Failures())
	}
	if provA.synthCalls == 0 {
		t.Error("healthy provider group should still have run")
	}
}

func TestRun_UnresolvableVoiceSkipsDirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mkPack(t, root, "prova-Ghost")

	provA := &fakeProvider{name: "prova", resolveErr: tts.ErrVoiceUnknown}
	orch := &fleet.Orchestrator{
		Manifest: testManifest,
		Registry: registryWith(t, map[string]*fakeProvider{"prova": provA}),
		Engine:   fakeEngine{},
		Confirm:  func(map[string]fleet.Missing) bool { return true },
	}

	report, err := orch.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", report.Failures())
	}
	if provA.synthCalls != 0 {
		t.Error("no synthesis may happen for an unresolvable voice")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	reg := fleet.NewRegistry()
	reg.Register("ProvA", func() (tts.Provider, error) {
		return &fakeProvider{name: "prova"}, nil
	})

	// Lookup is case-insensitive.
	p, err := reg.Create("prova")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name() != "prova" {
		t.Errorf("Name() = %q", p.Name())
	}

	_, err = reg.Create("nope")
	if !errors.Is(err, fleet.ErrProviderNotRegistered) {
		t.Errorf("error = %v, want ErrProviderNotRegistered", err)
	}
}
