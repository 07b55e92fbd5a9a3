package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
)

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options [model|stt|llm|tts|language]",
		Short: "List the pipeline components the backend offers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := catalog.Kinds()
			if len(args) == 1 {
				k, err := catalog.ParseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []catalog.Kind{k}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for i, k := range kinds {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s\tID\tNAME\n", k)
				for _, o := range catalog.Options(k) {
					fmt.Fprintf(w, "\t%d\t%s\n", o.ID, o.Name)
				}
			}
			if len(args) == 0 || kinds[0] == catalog.KindModel {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "presets\t\t")
				for _, m := range catalog.Models() {
					fmt.Fprintf(w, "\t%d\t%s\n", m.ID, catalog.Describe(m.Defaults))
				}
			}
			return w.Flush()
		},
	}
}
