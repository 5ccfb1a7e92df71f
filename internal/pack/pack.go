// Package pack models soundpack directories: one voice-and-provider-specific
// output directory of generated audio files.
//
// Packs follow the naming convention "<provider>-<voice>" (e.g.
// "elevenlabs-Rachel") and must contain a "sounds" subdirectory to be
// considered valid. New packs are created simply by creating such a
// directory; the files inside it are the durable record of what has already
// been generated.
package pack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SoundsDirName is the audio-root subdirectory every valid pack must contain.
const SoundsDirName = "sounds"

// Dir is one discovered pack directory.
type Dir struct {
	// Name is the directory's base name, e.g. "elevenlabs-Rachel".
	Name string

	// Path is the pack directory's full path.
	Path string

	// Provider is the lower-cased provider prefix parsed from Name.
	Provider string

	// Voice is the voice part of Name, verbatim.
	Voice string
}

// SoundsDir returns the pack's audio root.
func (d Dir) SoundsDir() string {
	return filepath.Join(d.Path, SoundsDirName)
}

// Parse interprets path as a pack directory. ok is false when the base name
// does not follow the <provider>-<voice> convention or the sounds
// subdirectory is missing.
func Parse(path string) (d Dir, ok bool) {
	name := filepath.Base(path)
	provider, voice, found := strings.Cut(name, "-")
	if !found || provider == "" || voice == "" {
		return Dir{}, false
	}

	fi, err := os.Stat(filepath.Join(path, SoundsDirName))
	if err != nil || !fi.IsDir() {
		return Dir{}, false
	}

	return Dir{
		Name:     name,
		Path:     path,
		Provider: strings.ToLower(provider),
		Voice:    voice,
	}, true
}

// Discover returns all valid pack directories directly under root, sorted by
// name. Subdirectories that do not parse as packs are silently ignored.
func Discover(root string) ([]Dir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("pack: read %q: %w", root, err)
	}

	var dirs []Dir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if d, ok := Parse(filepath.Join(root, e.Name())); ok {
			dirs = append(dirs, d)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return dirs, nil
}
