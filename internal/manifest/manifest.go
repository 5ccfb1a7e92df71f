// Package manifest implements the store for the text-to-audio manifest that
// drives generation: an ordered list of entries mapping a relative output
// path to the text (and optional SSML markup) to synthesize for it.
//
// The manifest is a plain JSON file read and written as a whole. Entries are
// read-only during synchronization; the pipeline itself never mutates or
// deletes them.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one manifest record.
type Entry struct {
	// Path is the output file path relative to a pack's sounds directory,
	// using forward slashes. Unique within a manifest after normalization.
	Path string `json:"path"`

	// TTSText is the plain text to synthesize. It may differ freely from
	// the filename.
	TTSText string `json:"tts_text"`

	// SSMLText is optional markup text; empty means no markup.
	SSMLText string `json:"ssml_text"`
}

// NormalizePath canonicalizes a manifest path: backslashes become forward
// slashes and leading separators are stripped. Two paths that normalize
// equally address the same output file.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimLeft(p, "/")
}

// Load reads and validates the manifest file at path.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %q: %w", path, err)
	}
	defer f.Close()

	entries, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse %q: %w", path, err)
	}
	return entries, nil
}

// LoadFromReader decodes a manifest from r and validates the result. Useful
// in tests where manifests are built from string literals.
func LoadFromReader(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	seen := make(map[string]int, len(entries))
	for i := range entries {
		key := NormalizePath(entries[i].Path)
		if key == "" {
			return nil, fmt.Errorf("entry %d: empty path", i)
		}
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("entry %d: duplicate path %q (first at entry %d)", i, key, prev)
		}
		seen[key] = i
	}
	return entries, nil
}

// Save writes the full manifest to path, replacing any existing file.
func Save(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("manifest: write %q: %w", path, err)
	}
	return nil
}

// Merge appends to existing every discovered entry whose normalized path is
// not already present, preserving discovery order. Existing entries are never
// mutated, reordered or removed. Returns the merged list together with the
// number of appended and dropped (already known) entries.
func Merge(existing, discovered []Entry) (merged []Entry, added, skipped int) {
	known := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		known[NormalizePath(e.Path)] = struct{}{}
	}

	merged = make([]Entry, len(existing), len(existing)+len(discovered))
	copy(merged, existing)

	for _, d := range discovered {
		key := NormalizePath(d.Path)
		if _, ok := known[key]; ok {
			skipped++
			continue
		}
		known[key] = struct{}{}
		merged = append(merged, d)
		added++
	}
	return merged, added, skipped
}
