package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"LPPLWatch/pkg/server"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [SYMBOL...]",
	Short: "Apply archive retention",
	Long: `Keeps the newest run.keep_history_days distinct dates of artifacts per
instrument and deletes the rest. Running it twice deletes nothing the second
time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, app *server.App) error {
			results, err := app.Cleanup(args)

			symbols := make([]string, 0, len(results))
			for s := range results {
				symbols = append(symbols, s)
			}
			sort.Strings(symbols)

			w := cmd.OutOrStdout()
			for _, s := range symbols {
				res := results[s]
				fmt.Fprintf(w, "%-8s kept [%s] purged [%s] deleted %d files\n",
					s, strings.Join(res.Kept, ", "), strings.Join(res.Purged, ", "), len(res.Deleted))
			}
			return err
		})
	},
}
