package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/glbot/glbot/internal/cli.version=1.2.3"
	version = "1.0.0"
	logo    = "\n" +
		"        _ _           _\n" +
		"   __ _| | |__   ___ | |_\n" +
		"  / _` | | '_ \\ / _ \\| __|\n" +
		" | (_| | | |_) | (_) | |_\n" +
		"  \\__, |_|_.__/ \\___/ \\__|\n" +
		"  |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "glbot",
	Short: "glbot - General Ledger chat bot",
	Long:  color.CyanString(logo) + "\nA SeaTalk bot that searches monthly general-ledger spreadsheets on Google Drive.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
