package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, progress stream and scheduled batches",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Server port (overrides config)")
	serveCmd.Flags().String("host", "", "Server host (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	application.InitHandlers()
	srv := server.New(application)

	if err := application.StartScheduler(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	serverErr := make(chan error, 1)
	common.SafeGo(logger, "http-server", func() {
		serverErr <- srv.Start()
	})

	logger.Info().
		Str("url", fmt.Sprintf("http://%s", srv.Addr())).
		Msg("Server ready - Press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		logger.Info().Msg("Interrupt signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	return nil
}
