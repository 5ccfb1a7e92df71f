package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/soundforge/internal/config"
	"github.com/MrWong99/soundforge/internal/fleet"
	"github.com/MrWong99/soundforge/internal/manifest"
	"github.com/MrWong99/soundforge/internal/observe"
)

func newSyncCmd(configPath *string) *cobra.Command {
	var (
		manifestPath string
		rootDir      string
		listMissing  bool
		assumeYes    bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synthesize the missing clips of every sound pack",
		Long: `Sync discovers every <provider>-<voice> pack directory under the root,
compares each against the manifest and synthesizes the missing clips.
Synthesis incurs provider fees, so it asks for confirmation first unless
--yes is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}
			return runSync(cmd, cfg, manifestPath, rootDir, listMissing, assumeYes)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "file", "f", "template.json", "path to the sound manifest")
	cmd.Flags().StringVarP(&rootDir, "directory", "d", ".", "root directory containing the pack directories")
	cmd.Flags().BoolVar(&listMissing, "missing", false, "log every missing file path during the count")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the fee confirmation prompt")
	return cmd
}

func runSync(cmd *cobra.Command, cfg *config.Config, manifestPath, rootDir string, listMissing, assumeYes bool) error {
	entries, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	slog.Info("manifest loaded", "path", manifestPath, "entries", len(entries))

	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	confirm := promptConfirm
	if assumeYes {
		confirm = func(map[string]fleet.Missing) bool { return true }
	}

	orch := &fleet.Orchestrator{
		Manifest:   entries,
		Registry:   config.BuildRegistry(cfg, creds),
		Engine:     cfg.NewEngine(),
		Gate:       cfg.NewGate(),
		FastTempo:  cfg.Audio.FastTempo,
		Confirm:    confirm,
		LogMissing: listMissing,
		Metrics:    observe.Default(),
	}

	report, err := orch.Run(cmd.Context(), rootDir)
	if err != nil {
		return err
	}
	if report.Aborted {
		return nil
	}
	if n := report.Failures(); n > 0 {
		return fmt.Errorf("%d pack directories failed", n)
	}
	return nil
}

// promptConfirm asks the operator to accept the generation fees on stdin.
// Anything other than "y" declines.
func promptConfirm(missing map[string]fleet.Missing) bool {
	for provider, m := range missing {
		fmt.Printf("%s: %d files missing (%d characters)\n", provider, m.Files, m.Characters)
	}
	fmt.Print("You are responsible for any TTS generation fees incurred. Proceed? (y/n): ")

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y"
}
