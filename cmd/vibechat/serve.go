package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/vibechat/internal/daemon"
	"github.com/harunnryd/vibechat/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vibechat HTTP API",
	Long:  `Starts the HTTP API (/api/chat, /api/vibe-ask, /api/health) under component lifecycle management.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		modelsComp := components.NewModelRouterComponent(cfg.Models)
		toolsComp := components.NewToolRegistryComponent(cfg.Tools)
		httpComp := components.NewHTTPServerComponent(daemonMgr, cfg, modelsComp, toolsComp)

		daemonMgr.AddComponent(modelsComp)
		daemonMgr.AddComponent(toolsComp)
		daemonMgr.AddComponent(httpComp)

		err = daemonMgr.Start(cmd.Context())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("vibechat stopped gracefully")
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		}

		slog.Info("vibechat stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
