package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/soundforge/internal/config"
)

func newVoicesCmd(configPath *string) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the voices a provider offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}
			return runVoices(cmd, cfg, provider)
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "elevenlabs", "provider to query")
	return cmd
}

func runVoices(cmd *cobra.Command, cfg *config.Config, providerName string) error {
	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	provider, err := config.BuildRegistry(cfg, creds).Create(providerName)
	if err != nil {
		return err
	}

	voices, err := provider.Voices(cmd.Context())
	if err != nil {
		return err
	}
	if !provider.Capabilities().EnumeratesVoices {
		fmt.Println("note: this provider's catalogue is partial; private voice IDs also work")
	}
	for _, v := range voices {
		fmt.Printf("%-24s %s\n", v.ID, v.Name)
	}
	return nil
}
