package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kavindra/stencil/internal/config"
	"github.com/kavindra/stencil/internal/logger"
	"github.com/kavindra/stencil/internal/metrics"
	"github.com/kavindra/stencil/pkg/engine"
	"github.com/kavindra/stencil/pkg/server"
	"github.com/kavindra/stencil/pkg/source"
	"github.com/kavindra/stencil/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scaffolding web server",
	Long: `Start the HTTP server exposing the template form page, the load and
generate endpoints, and metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer lg.Close()
	zl := lg.GetZerolog()

	m := metrics.New()

	acquirer, err := source.New(source.Config{
		ScratchRoot:  cfg.Source.ScratchRoot,
		CloneTimeout: cfg.CloneTimeout(),
		Logger:       zl,
	})
	if err != nil {
		return fmt.Errorf("failed to create acquirer: %w", err)
	}

	if err := os.MkdirAll(cfg.Store.OutputRoot, 0o755); err != nil {
		return fmt.Errorf("failed to create output root: %w", err)
	}

	st := store.New(store.Config{
		TTL:        cfg.SessionTTL(),
		OutputRoot: cfg.Store.OutputRoot,
		Logger:     zl,
		Metrics:    m,
	})

	eng := engine.New(cfg.GenerateTimeout(), zl)

	srv, err := server.New(server.Options{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, acquirer, st, eng, m, zl)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		return srv.Stop()
	}
}
