package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
	"github.com/CADX03/AI-Voice-Assistant/internal/config"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			url, err := config.ResolveBackendURL(cfg.Backend)
			if err != nil {
				return err
			}
			params := catalog.Default()
			if cfg.Session.Config != nil {
				params = *cfg.Session.Config
			}
			if err := catalog.Validate(params); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "config OK")
			fmt.Fprintf(out, "  backend:  %s\n", url)
			fmt.Fprintf(out, "  pipeline: %s\n", catalog.Describe(params))
			fmt.Fprintf(out, "  capture:  %s\n", cfg.Capture.Source)
			fmt.Fprintf(out, "  playback: %s\n", cfg.Playback.Output)
			if cfg.Transcript.PostgresDSN != "" {
				fmt.Fprintln(out, "  transcript: postgres")
			} else {
				fmt.Fprintln(out, "  transcript: memory")
			}
			return nil
		},
	}
}
