package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agrovoice/agrovoice/internal/observability"
	"github.com/agrovoice/agrovoice/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the advisory gRPC service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			shutdownTracing, err := observability.InitTracing(cmd.Context(), os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := shutdownTracing(ctx); err != nil {
					log.Printf("tracing shutdown: %v", err)
				}
			}()

			metricsSrv := observability.ServeMetrics(cfg.Server.MetricsAddr)
			if metricsSrv != nil {
				log.Printf("metrics listening on %s", cfg.Server.MetricsAddr)
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = metricsSrv.Shutdown(ctx)
				}()
			}

			if err := a.lifecycle.Start(); err != nil {
				return err
			}

			srv := server.New(a.engine, a.store)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Serve(cfg.Server.ListenAddr)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				log.Printf("received %s, shutting down", sig)
			}

			srv.Stop()
			return nil
		},
	}
}
