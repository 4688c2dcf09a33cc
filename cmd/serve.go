package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/asymptote/analyze"
	"github.com/gnolang/asymptote/internal/server"
)

var serveAddr string

// serveCmd: asymptote serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analyses over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		engine, err := analyze.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize analysis engine: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		return server.New(engine, logger).ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
