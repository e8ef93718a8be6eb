package cli

import (
	"fmt"

	"idealista-parser-service/internal"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(cmd.Context(), internal.Options{
			EnvFile:  envFile,
			LogLevel: logLevel,
			Publish:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer app.Close()

		return app.Serve()
	},
}
