// Command soundforge builds and maintains localized speech-audio asset packs:
// it reads a sound manifest, synthesizes the missing clips through pluggable
// TTS backends and masters every clip to a uniform loudness with ffmpeg.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/soundforge/internal/config"
	"github.com/MrWong99/soundforge/internal/observe"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	reader, shutdown := observe.NewRunProvider(version)
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("metrics shutdown failed", "err", err)
		}
	}()

	err := newRootCmd().ExecuteContext(ctx)

	// The summary covers failed runs too; partial progress still cost money.
	observe.LogSummary(context.Background(), reader, slog.Default())

	if err != nil {
		fmt.Fprintf(os.Stderr, "soundforge: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "soundforge",
		Short:         "Build localized speech-audio asset packs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "soundforge.yaml", "path to the YAML configuration file")

	cmd.AddCommand(
		newSyncCmd(&configPath),
		newBootstrapCmd(&configPath),
		newReleaseCmd(&configPath),
		newVoicesCmd(&configPath),
	)
	return cmd
}

// setup loads the configuration and installs the default logger. Every
// subcommand calls it first so log output honours the configured level.
func setup(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.LogLevel))
	return cfg, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
