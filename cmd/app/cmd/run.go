package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/server"
	"LPPLWatch/pkg/util"

	"github.com/spf13/cobra"
)

var failOnError bool

var runCmd = &cobra.Command{
	Use:   "run [SYMBOL...]",
	Short: "Run one batch",
	Long: `Runs the full pipeline for each instrument in order: history, fit, nested
fits, confidence, clusters, narrative, artifacts, persistence and retention.
A failing instrument never stops the batch.

Examples:
  lpplwatch run              # configured tickers
  lpplwatch run SPY ^NDX     # selected symbols`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) error {
			batch, err := app.RunOnce(ctx, args)
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), batch)
			if failOnError && batch.Failed() > 0 {
				return fmt.Errorf("%d of %d instruments failed", batch.Failed(), len(batch.Instruments))
			}
			return nil
		})
	},
}

func init() {
	runCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero when any instrument fails")
}

func printBatch(w io.Writer, b *models.BatchOutcome) {
	fmt.Fprintf(w, "batch %s  %s  %d instruments, %d failed, %s\n",
		b.RunID, util.FormatDay(b.RunDate), len(b.Instruments), b.Failed(), b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond))
	for _, o := range b.Instruments {
		status := "ok"
		if o.Failed() {
			status = "FAILED: " + o.Err.Error()
		}
		fmt.Fprintf(w, "  %-8s %s\n", o.Symbol, status)
		if o.Narrative != nil {
			fmt.Fprintf(w, "           clusters: %d (%d top, %d bottom)\n", o.Narrative.Total, o.Narrative.NumTop, o.Narrative.NumBottom)
			for _, r := range o.Narrative.Remarks() {
				fmt.Fprintf(w, "           - %s\n", r.Text)
			}
		}
		for _, s := range o.StageErrors() {
			if !models.IsFatal(s.Err) {
				fmt.Fprintf(w, "           warn %s: %v\n", s.Stage, s.Err)
			}
		}
		if len(o.Purged) > 0 {
			fmt.Fprintf(w, "           purged: %s\n", strings.Join(o.Purged, ", "))
		}
	}
}
