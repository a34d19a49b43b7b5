package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/amanmcp-labs/memoryd/internal/embed"
)

func newListModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-models",
		Short: "List supported embedding models",
		Long:  `List the fixed set of embedding models memoryd knows how to load, and their native dimensions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := embed.Names()
			sort.Strings(names)
			for _, name := range names {
				spec, err := embed.Lookup(name)
				if err != nil {
					return err
				}
				marker := " "
				if name == embed.DefaultModel {
					marker = "*"
				}
				mrl := ""
				if len(spec.MRLDims) > 1 {
					mrl = fmt.Sprintf(" (mrl: %v)", spec.MRLDims)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-14s dim=%-4d %s%s\n", marker, name, spec.Dimension, spec.HubRepo, mrl)
			}
			return nil
		},
	}
	return cmd
}
