package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/evgeny-myasishchev/statements-connector/pkg/feeds"
	"github.com/evgeny-myasishchev/statements-connector/pkg/ingest"
)

func serveMetrics(ctx context.Context, addr string, metrics *ingest.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		logger.Info(ctx, "Serving metrics on %v", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error(ctx, "Metrics server failed")
		}
	}()
}

func runTick(ctx context.Context, store feeds.Store, cycle *ingest.Cycle) error {
	results, err := store.Load(ctx)
	if err != nil {
		return err
	}
	summary := cycle.RunAll(ctx, feeds.Active(ctx, results))
	if err := summary.Err(); err != nil {
		logger.WithError(err).Warn(ctx, "Some feeds failed")
	}
	return nil
}

func runCmd() *cobra.Command {
	var every time.Duration
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest new statements of all active feeds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return injector(func(store feeds.Store, cycle *ingest.Cycle, metrics *ingest.Metrics) error {
				if metricsAddr != "" {
					serveMetrics(ctx, metricsAddr, metrics)
				}
				if err := runTick(ctx, store, cycle); err != nil {
					return err
				}
				if every <= 0 {
					return nil
				}
				ticker := time.NewTicker(every)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						logger.Info(ctx, "Stopping")
						return nil
					case <-ticker.C:
						if err := runTick(ctx, store, cycle); err != nil {
							return err
						}
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "Repeat ingestion with a given interval (e.g 1h). Runs once if not set")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on a given address (e.g :9090)")
	return cmd
}
