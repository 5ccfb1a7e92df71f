package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrWong99/soundforge/internal/release"
)

func newReleaseCmd(configPath *string) *cobra.Command {
	var (
		rootDir string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Zip every pack directory for distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(*configPath); err != nil {
				return err
			}
			created, err := release.Archive(rootDir, outDir)
			for _, path := range created {
				slog.Info("archive written", "path", path)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&rootDir, "directory", "d", ".", "root directory containing the pack directories")
	cmd.Flags().StringVarP(&outDir, "out", "o", "dist", "directory to write the zip archives into")
	return cmd
}
