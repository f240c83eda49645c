package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glbot/glbot/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run offline configuration diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnvFileCandidates()
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		type check struct {
			name string
			ok   bool
			note string
		}
		checks := []check{
			{"seatalk app id", strings.TrimSpace(cfg.SeaTalk.AppID) != "", "set SEATALK_APP_ID"},
			{"seatalk app secret", strings.TrimSpace(cfg.SeaTalk.AppSecret) != "", "set SEATALK_APP_SECRET"},
			{"drive credentials", strings.TrimSpace(cfg.Drive.CredentialsJSON) != "", "set GDRIVE_CREDENTIALS_JSON"},
			{"drive source folder", strings.TrimSpace(cfg.Drive.SourceFolderID) != "", "set GDRIVE_SOURCE_FOLDER_ID"},
			{"drive output folder", strings.TrimSpace(cfg.Drive.OutputFolderID) != "", "set GDRIVE_OUTPUT_FOLDER_ID"},
			{"history path", strings.TrimSpace(cfg.History.Path) != "", "set GLBOT_HISTORY_PATH"},
		}

		failures := 0
		for _, c := range checks {
			symbol := "PASS"
			note := ""
			if !c.ok {
				symbol = "FAIL"
				note = " (" + c.note + ")"
				failures++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s%s\n", symbol, c.name, note)
		}
		if !cfg.Drive.Ready() {
			fmt.Fprintln(cmd.OutOrStdout(), "note: ledger lookups stay disabled until all drive settings are present")
		}
		if failures > 0 {
			return fmt.Errorf("doctor found %d failing check(s)", failures)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
