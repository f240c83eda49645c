package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glbot/glbot/internal/config"
	"github.com/glbot/glbot/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent lookup commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnvFileCandidates()
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		svc, err := history.NewService(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer svc.Close()

		entries, err := svc.Recent(historyLimit)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no lookups recorded yet")
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  %-8s  %-10s  rows=%d files=%d",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Command, e.EmployeeCode, e.RowsMatched, e.FilesScanned)
			if e.Query != "" {
				line += fmt.Sprintf("  %q", e.Query)
			}
			if e.ErrorText != "" {
				line += "  error=" + e.ErrorText
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}
