package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capella-tools/capscan-batch/internal/journal"
	"github.com/capella-tools/capscan-batch/internal/report"
)

var flagReportOut string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the most recent run from the journal as an XLSX report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}

		store, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		result, err := store.LatestRun(cmd.Context())
		if err != nil {
			return err
		}

		out := flagReportOut
		if out == "" {
			out = cfg.ReportPath
		}
		if out == "" {
			out = "./report.xlsx"
		}
		if err := report.Write(out, result); err != nil {
			return err
		}
		fmt.Printf("wrote %s (run %s: %d/%d succeeded)\n", out, result.RunID, result.Succeeded, result.Total)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&flagReportOut, "out", "", "Report path (default REPORT_PATH or ./report.xlsx)")
	rootCmd.AddCommand(reportCmd)
}
