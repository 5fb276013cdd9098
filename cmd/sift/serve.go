package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/sift/internal/daemon"
	"github.com/harunnryd/sift/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the mail scheduler",
	Long:  `Starts sift as a long-running service. It serves the video and mail APIs, keeps the transcript cache and polls the mailbox on schedule when mail is enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		if enabled, _ := cmd.Flags().GetBool("mail"); enabled {
			cfg.Mail.Enabled = true
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		transcriptComp := components.NewTranscriptComponent(&cfg.Transcript)
		modelsComp := components.NewModelsComponent(&cfg.Models)
		mailComp := components.NewMailComponent(&cfg.Mail, modelsComp)
		schedulerComp := components.NewSchedulerComponent(cfg, mailComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, cfg, transcriptComp, modelsComp, mailComp, schedulerComp)

		daemonMgr.AddComponent(transcriptComp)
		daemonMgr.AddComponent(modelsComp)
		daemonMgr.AddComponent(mailComp)
		daemonMgr.AddComponent(schedulerComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("sift starting up...", "port", cfg.Server.Port, "mail_enabled", cfg.Mail.Enabled)
		err = daemonMgr.Start(context.Background())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("sift stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("sift stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("mail", false, "enable the mail agent regardless of config")
}
