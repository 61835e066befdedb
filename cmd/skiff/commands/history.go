package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skiffworks/skiff/pkg/skiff/config"
	"github.com/skiffworks/skiff/pkg/skiff/history"
)

// newHistoryCmd creates `skiff history` for listing past runs.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past agent runs",
		RunE:  runHistory,
	}
	cmd.Flags().String("config_path", "", "path to the YAML config file (optional)")
	cmd.Flags().Int("limit", 20, "maximum number of runs to show")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config_path")
	limit, _ := cmd.Flags().GetInt("limit")
	logger := newLogger(cmd)

	dbPath := ""
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		if cfg.History.Disabled {
			return fmt.Errorf("run history is disabled in %s", configPath)
		}
		dbPath = cfg.History.Path
	}
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultPath()
		if err != nil {
			return err
		}
	}

	store, err := history.Open(dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, r := range runs {
		query := r.Query
		if len(query) > 60 {
			query = query[:57] + "..."
		}
		fmt.Fprintf(out, "%s  %s  %-27s  %2d turn(s)  %s\n",
			r.ID[:8],
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.TerminateReason,
			r.Turns,
			strings.ReplaceAll(query, "\n", " "))
	}
	return nil
}
