package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capella-tools/capscan-batch/internal/capscan"
	"github.com/capella-tools/capscan-batch/internal/uia"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report the application's current UI state through the bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}

		bridge, err := uia.StartBridge(cfg.BridgeCommand)
		if err != nil {
			return fmt.Errorf("start uia bridge: %w", err)
		}
		defer bridge.Close()

		poller := uia.NewPoller(bridge, capscan.Predicates(), cfg.PollInterval(), logger)
		fmt.Println("state:", poller.Detect())

		surfaces, err := bridge.Surfaces()
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		for _, s := range surfaces {
			visibility := "visible"
			if !s.Visible() {
				visibility = "hidden"
			}
			fmt.Printf("  %-40q class=%s %s\n", s.Title(), s.ClassName(), visibility)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
