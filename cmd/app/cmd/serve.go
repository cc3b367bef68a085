package cmd

import (
	"context"

	"LPPLWatch/pkg/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serves the signal API and Prometheus metrics. When run.interval is set a
batch runs periodically; when queue.enabled is set run requests are consumed
from Redis. Ctrl+C stops the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) error {
			return app.Serve(ctx)
		})
	},
}
