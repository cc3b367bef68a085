package cmd

import (
	"fmt"
	"os"

	"LPPLWatch/internal/services/artifacts"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	reportWidth int
	reportRaw   bool
)

var reportCmd = &cobra.Command{
	Use:   "report SYMBOL",
	Short: "Print the latest analyst report",
	Long: `Renders the most recent archived Markdown report for SYMBOL in the
terminal. Does not contact any service.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := artifacts.NewLayout(cfg.Run.OutputDir).LatestReport(args[0])
		if err != nil {
			return err
		}
		md, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read report: %w", err)
		}

		w := cmd.OutOrStdout()
		if reportRaw {
			_, err = w.Write(md)
			return err
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(reportWidth),
		)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}
		out, err := renderer.Render(string(md))
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		fmt.Fprintln(w, path)
		_, err = fmt.Fprint(w, out)
		return err
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportWidth, "width", 100, "word wrap width")
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "print Markdown without rendering")
}
