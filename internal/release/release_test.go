package release_test

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/soundforge/internal/release"
)

func mkPack(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, name, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestArchive(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "dist")

	mkPack(t, root, "elevenlabs-Rachel", map[string]string{
		"sounds/chaos.mp3":        "chaos audio",
		"sounds/maps/ancient.mp3": "map audio",
	})
	mkPack(t, root, "ttsm-Yeti", map[string]string{
		"sounds/chaos.mp3": "yeti audio",
	})
	// Not a pack, must not be archived.
	mkPack(t, root, "scratch", map[string]string{"sounds/x.mp3": "x"})

	created, err := release.Archive(root, outDir)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d archives, want 2: %v", len(created), created)
	}

	zr, err := zip.OpenReader(filepath.Join(outDir, "elevenlabs-Rachel.zip"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		contents[f.Name] = string(data)
	}

	want := map[string]string{
		"sounds/chaos.mp3":        "chaos audio",
		"sounds/maps/ancient.mp3": "map audio",
	}
	for name, body := range want {
		if contents[name] != body {
			t.Errorf("archive entry %q = %q, want %q", name, contents[name], body)
		}
	}
	if len(contents) != len(want) {
		t.Errorf("archive has %d entries, want %d: %v", len(contents), len(want), contents)
	}
}

func TestArchive_OverwritesExisting(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	outDir := t.TempDir()
	mkPack(t, root, "ttsm-Yeti", map[string]string{"sounds/a.mp3": "v2"})

	stale := filepath.Join(outDir, "ttsm-Yeti.zip")
	if err := os.WriteFile(stale, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := release.Archive(root, outDir); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := zip.OpenReader(stale)
	if err != nil {
		t.Fatalf("stale archive was not replaced: %v", err)
	}
	zr.Close()
}

func TestArchive_MissingRoot(t *testing.T) {
	t.Parallel()
	if _, err := release.Archive(filepath.Join(t.TempDir(), "nope"), t.TempDir()); err == nil {
		t.Fatal("expected error for missing root, got nil")
	}
}
