package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/reportforge/reportforge/pkg/cli"
	"github.com/reportforge/reportforge/pkg/gateway"
	"github.com/reportforge/reportforge/pkg/recordstore"
	"github.com/reportforge/reportforge/pkg/ui"
)

func newServeCmd(d *deps, g *globalFlags) *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(d, g)
			if err != nil {
				return err
			}

			ctx, cancel := cli.SignalContext(cmd.Context(), cfg.Server.ShutdownTimeout.Std(), d.stderr)
			defer cancel()

			a, err := newApp(ctx, cfg, logger, d)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
				defer cancel()
				if err := a.Close(shutdownCtx); err != nil {
					logger.Warn("shutdown", slog.String("error", err.Error()))
				}
			}()

			records, err := recordstore.Open(cfg.Storage.RecordsFile)
			if err != nil {
				return err
			}
			if seed != "" {
				bundle, err := recordstore.LoadBundle(seed)
				if err != nil {
					return &cli.UsageError{Err: fmt.Errorf("seed %s: %w", seed, err)}
				}
				if err := records.Import(bundle); err != nil {
					return err
				}
				logger.Info("records seeded", slog.String("path", seed), slog.Int("reports", len(bundle.Reports)))
			}

			srv, err := gateway.New(gateway.Config{
				Reports:     records,
				Engagements: records,
				Generator:   a.generator,
				Files:       a.files,
				NotFound:    recordstore.ErrNotFound,
				Retry:       a.retryConfig(),
				RateLimit:   cfg.Server.RateLimit,
				Burst:       cfg.Server.Burst,
				Ready:       a.chromeReady,
				Metrics:     a.metrics,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			if err := a.chromeReady(); err != nil {
				logger.Warn("renderer not ready", slog.String("error", err.Error()))
			}

			ui.PrintBanner(d.stderr)
			ui.PrintConfigBanner(d.stderr, bannerOptions(a, records))

			return gateway.ListenAndServe(ctx, srv.Handler(), gateway.ServerOptions{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout.Std(),
				WriteTimeout:    cfg.Server.WriteTimeout.Std(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
			}, logger)
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "import reports and engagements from a JSON bundle before serving")
	return cmd
}

func bannerOptions(a *app, records *recordstore.Store) map[string]string {
	cfg := a.cfg
	lock := "in-process"
	if cfg.Lock.RedisURL != "" {
		lock = "redis"
	}
	tracing := "off"
	if a.tracing.Enabled() {
		tracing = cfg.Telemetry.OTLPEndpoint
	}
	rateLimit := "off"
	if cfg.Server.RateLimit > 0 {
		rateLimit = fmt.Sprintf("%.1f/s burst %d", cfg.Server.RateLimit, cfg.Server.Burst)
	}
	chrome := cfg.Browser.ExecPath
	if chrome == "" {
		chrome = "auto"
	}
	stats := records.Stats()
	return map[string]string{
		"Listen":     cfg.Server.Addr,
		"Files":      a.files.Dir(),
		"Records":    fmt.Sprintf("%s (%d reports)", cfg.Storage.RecordsFile, stats.Reports),
		"Chrome":     chrome,
		"Lock":       lock,
		"Tracing":    tracing,
		"Rate Limit": rateLimit,
	}
}
