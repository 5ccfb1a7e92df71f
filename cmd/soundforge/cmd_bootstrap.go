package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/soundforge/internal/bootstrap"
	"github.com/MrWong99/soundforge/internal/manifest"
)

func newBootstrapCmd(configPath *string) *cobra.Command {
	var (
		packDir      string
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Draft manifest entries from an existing pack's files",
		Long: `Bootstrap scans the sounds directory of one pack and derives a manifest
entry for every .mp3 it finds, guessing the spoken text from the filename.
New entries are merged into the manifest; existing paths are left untouched.
The guessed text is a starting point and should be reviewed by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(*configPath); err != nil {
				return err
			}
			return runBootstrap(packDir, manifestPath)
		},
	}
	cmd.Flags().StringVarP(&packDir, "directory", "d", ".", "pack directory to scan")
	cmd.Flags().StringVarP(&manifestPath, "file", "f", "template.json", "manifest to merge the drafted entries into")
	return cmd
}

func runBootstrap(packDir, manifestPath string) error {
	discovered, err := bootstrap.Scan(packDir, nil)
	if err != nil {
		return err
	}

	existing, err := manifest.Load(manifestPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	merged, added, skipped := manifest.Merge(existing, discovered)
	if err := manifest.Save(manifestPath, merged); err != nil {
		return err
	}

	slog.Info("manifest bootstrapped",
		"path", manifestPath,
		"scanned", len(discovered),
		"added", added,
		"already_present", skipped,
	)
	return nil
}
