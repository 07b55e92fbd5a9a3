package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
)

func newFeedbackCmd(g *globalFlags) *cobra.Command {
	var sel selectionFlags
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Print the feedback form link for the selected pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			base := catalog.Default()
			if cfg.Session.Config != nil {
				base = *cfg.Session.Config
			}
			params, err := sel.apply(base)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.FeedbackURL(params))
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}
