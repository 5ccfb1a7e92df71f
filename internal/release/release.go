// Package release packages pack directories into zip archives for upload
// with a release. Existing archives with the same name are overwritten.
package release

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrWong99/soundforge/internal/pack"
)

// Archive zips every valid pack directory under root into outDir as
// "<name>.zip" and returns the created archive paths. outDir is created if
// it does not exist.
func Archive(root, outDir string) ([]string, error) {
	dirs, err := pack.Discover(root)
	if err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("release: create %q: %w", outDir, err)
	}

	var created []string
	for _, dir := range dirs {
		zipPath := filepath.Join(outDir, dir.Name+".zip")
		if err := archiveDir(dir.Path, zipPath); err != nil {
			return created, fmt.Errorf("release: archive %q: %w", dir.Name, err)
		}
		created = append(created, zipPath)
	}
	return created, nil
}

// archiveDir writes all regular files under src into a zip at zipPath, with
// forward-slash entry names relative to src.
func archiveDir(src, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return out.Close()
}
