// Package bootstrap builds a first-draft manifest from an existing pack's
// file tree. It is a one-time convenience: the generated entries derive their
// spoken text from filenames through a pluggable normalization strategy and
// should be fixed up by hand afterwards.
package bootstrap

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/MrWong99/soundforge/internal/manifest"
	"github.com/MrWong99/soundforge/internal/pack"
)

// Normalizer rewrites a filename-derived phrase into the text that should be
// spoken for it. It must be a pure function.
type Normalizer func(string) string

// rarity words that read better announced first ("rare ring" instead of
// "ring rare").
var rarityPrefixes = []string{"rare", "magic"}

// NormalizeText is the default normalization strategy, tuned for loot-filter
// item names: trailing rarity words move to the front and redundant currency
// noise is stripped.
func NormalizeText(text string) string {
	for _, rarity := range rarityPrefixes {
		if suffix := " " + rarity; strings.HasSuffix(text, suffix) {
			text = rarity + " " + strings.TrimSuffix(text, suffix)
		}
	}
	text = strings.ReplaceAll(text, "orb of ", "")
	text = strings.ReplaceAll(text, "scroll of ", "")
	text = strings.ReplaceAll(text, " orb", "")
	return text
}

// Markup derives the optional SSML text for a normalized phrase: multi-word
// phrases get a fast prosody rate, and the ambiguous "1h"/"2h" tokens are
// spelled out character by character so they are not read as numbers.
// Returns "" when no markup is warranted.
func Markup(text string) string {
	ssml := ""
	if strings.Contains(text, " ") {
		ssml = "<prosody rate='fast'>" + text + "</prosody>"
	}
	for _, token := range []string{"1h", "2h"} {
		if strings.Contains(ssml, token) {
			ssml = strings.ReplaceAll(ssml, token,
				"<say-as interpret-as='characters'>"+token+"</say-as>")
		}
	}
	return ssml
}

// Scan walks the sounds directory of the pack at dir and returns one manifest
// entry per .mp3 file, in lexical walk order. norm may be nil, in which case
// [NormalizeText] is used.
func Scan(dir string, norm Normalizer) ([]manifest.Entry, error) {
	if norm == nil {
		norm = NormalizeText
	}
	soundsDir := filepath.Join(dir, pack.SoundsDirName)

	var entries []manifest.Entry
	err := filepath.WalkDir(soundsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".mp3") {
			return nil
		}

		rel, err := filepath.Rel(soundsDir, path)
		if err != nil {
			return err
		}

		text := norm(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
		entries = append(entries, manifest.Entry{
			Path:     manifest.NormalizePath(filepath.ToSlash(rel)),
			TTSText:  text,
			SSMLText: Markup(text),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: scan %q: %w", soundsDir, err)
	}
	return entries, nil
}
