package cli

import (
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "idealista-parser-service",
	Short: "Search client for the idealista property API",
	Long: `Queries the idealista search API for Spain, Portugal and Italy.
Credentials are read from the environment or a .env file:
IDEALISTA_TOKEN, or IDEALISTA_API_KEY together with IDEALISTA_API_SECRET.`,
	SilenceUsage: true,
}

// Execute запускает корневую команду
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides STDOUT_LOG_LEVEL)")
}
