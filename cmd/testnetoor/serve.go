package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/testnetoor/pkg/api"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded state over a read-only HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides api.server.listen)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serveListen != "" {
		cfg.API.Server.Listen = serveListen
	}

	if err := cfg.ValidateAPI(); err != nil {
		return fmt.Errorf("validating api config: %w", err)
	}

	// The root context is cancelled on SIGINT and SIGTERM.
	ctx := cmd.Context()

	return withStore(ctx, cfg, func(st store.Store) error {
		logger := commandLogger("serve")
		srv := api.NewServer(logger, &cfg.API, st, newArchiver(cfg))

		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting api server: %w", err)
		}

		return serveUntilDone(ctx, logger, srv)
	})
}

// serveUntilDone runs a started server until ctx is cancelled or the serve
// loop fails, and stops it either way. A serve failure cancels gctx.
func serveUntilDone(ctx context.Context, logger logrus.FieldLogger, srv api.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Wait(); err != nil {
			return fmt.Errorf("serving api: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down API server")

		return srv.Stop()
	})

	return g.Wait()
}
