package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skiffworks/skiff/pkg/skiff/tools"
)

// newToolsCmd creates `skiff tools`, printing the registered catalog.
func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd)
			registry := tools.NewRegistry(logger)
			tools.RegisterAll(registry, tools.Options{Logger: logger})

			out := cmd.OutOrStdout()
			for _, entry := range registry.Describe() {
				fmt.Fprintf(out, "%-22s %s\n", entry[0], entry[1])
			}
			return nil
		},
	}
}
