package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/capella-tools/capscan-batch/internal/archive"
	"github.com/capella-tools/capscan-batch/internal/batch"
	"github.com/capella-tools/capscan-batch/internal/bus"
	"github.com/capella-tools/capscan-batch/internal/capscan"
	"github.com/capella-tools/capscan-batch/internal/journal"
	"github.com/capella-tools/capscan-batch/internal/preflight"
	"github.com/capella-tools/capscan-batch/internal/report"
	"github.com/capella-tools/capscan-batch/internal/uia"
)

var (
	flagInputDir  string
	flagOutputDir string
	flagReport    string
	flagDryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Convert every image in the input directory to a .csc score",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		if flagInputDir != "" {
			cfg.InputDir = flagInputDir
		}
		if flagOutputDir != "" {
			cfg.OutputDir = flagOutputDir
		}
		if flagReport != "" {
			cfg.ReportPath = flagReport
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		units, err := batch.EnumerateUnits(cfg.InputDir, cfg.OutputDir)
		if err != nil {
			return err
		}
		logger.Info("batch enumerated", "units", len(units), "input_dir", cfg.InputDir, "output_dir", cfg.OutputDir)

		if flagDryRun {
			for _, u := range units {
				fmt.Printf("%s -> %s\n", u.Input, u.Output)
			}
			return nil
		}
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("ensure output dir: %w", err)
		}

		bridge, err := uia.StartBridge(cfg.BridgeCommand)
		if err != nil {
			return fmt.Errorf("start uia bridge: %w", err)
		}
		defer bridge.Close()

		if err := bridge.EnsureApp(ctx, cfg.ExePath); err != nil {
			return fmt.Errorf("start capella-scan: %w", err)
		}

		app := capscan.New(bridge, cfg.PollInterval(), cfg.Timeouts(), logger)
		if err := app.WaitMain(ctx); err != nil {
			return fmt.Errorf("capella-scan did not reach its main window: %w", err)
		}
		logger.Info("capella-scan ready", "exe", cfg.ExePath)

		store, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		observers := multiObserver{store}

		if cfg.NATSURL != "" {
			nc, err := bus.Connect(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connect to NATS: %w", err)
			}
			defer nc.Close()
			logger.Info("connected to NATS", "nats_url", cfg.NATSURL, "subject", cfg.ResultSubject)
			observers = append(observers, bus.NewPublisher(nc, cfg.ResultSubject, logger))
		}

		opts := batch.Options{Observer: observers, Logger: logger}
		if cfg.Preflight {
			opts.Normalize = preflight.New(cfg.StagingDir, cfg.MaxEdge, logger).Normalize
		}

		result := batch.NewRunner(app, opts).Run(ctx, units)
		logger.Info("batch finished",
			"run_id", result.RunID,
			"total", result.Total,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"duration_ms", result.Duration.Milliseconds(),
		)

		if cfg.ReportPath != "" {
			if err := report.Write(cfg.ReportPath, result); err != nil {
				logger.Error("write report failed", "path", cfg.ReportPath, "err", err)
			} else {
				logger.Info("report written", "path", cfg.ReportPath)
			}
		}

		if cfg.ArchiveEnabled {
			archiveScores(ctx, cfg, result)
		}

		fmt.Printf("%d/%d succeeded, %d failed\n", result.Succeeded, result.Total, result.Failed)
		return nil
	},
}

// archiveScores uploads every successful unit's score. Archive problems
// are reported but the run result stands: the scores are already on disk.
func archiveScores(ctx context.Context, cfg Config, result batch.Result) {
	svc, backend, err := buildContentService(cfg)
	if err != nil {
		logger.Error("content service unavailable, skipping archive", "err", err)
		return
	}

	uploader := archive.NewUploader(svc, backend, cfg.ArchiveParentID, logger)
	for _, u := range result.Units {
		if !u.Succeeded {
			continue
		}
		if _, err := uploader.ArchiveScore(ctx, u.Input, u.Output); err != nil {
			logger.Error("archive score failed", "output", u.Output, "err", err)
		}
	}
}

func init() {
	runCmd.Flags().StringVar(&flagInputDir, "in", "", "Input image directory (overrides IMG_IN_DIR)")
	runCmd.Flags().StringVar(&flagOutputDir, "out", "", "Output score directory (overrides CSC_OUT_DIR)")
	runCmd.Flags().StringVar(&flagReport, "report", "", "Write an XLSX report to this path (overrides REPORT_PATH)")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "List the units that would be processed, then exit")
	rootCmd.AddCommand(runCmd)
}
