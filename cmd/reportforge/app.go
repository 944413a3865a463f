package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/reportforge/reportforge/pkg/compiler"
	"github.com/reportforge/reportforge/pkg/config"
	"github.com/reportforge/reportforge/pkg/filestore"
	"github.com/reportforge/reportforge/pkg/pdfrender"
	"github.com/reportforge/reportforge/pkg/pipeline"
	"github.com/reportforge/reportforge/pkg/rendercontext"
	"github.com/reportforge/reportforge/pkg/retry"
	"github.com/reportforge/reportforge/pkg/telemetry"
	"github.com/reportforge/reportforge/templates"
)

// app is the wired pipeline shared by serve and render.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	tracing   *telemetry.Tracing
	files     *filestore.Store
	generator *pipeline.Generator

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, d *deps) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if cfg.Telemetry.Metrics {
		a.metrics = telemetry.NewMetrics()
	}

	a.tracing, err = telemetry.NewTracing(telemetry.TracingOptions{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.closers = append(a.closers, a.tracing.Shutdown)

	storeOpts := filestore.Options{Logger: logger}
	if cfg.Lock.RedisURL != "" {
		client, err := filestore.DialRedis(ctx, cfg.Lock.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		storeOpts.Locker = filestore.NewRedisLocker(client, filestore.RedisLockerOptions{
			Prefix: cfg.Lock.Prefix,
			TTL:    cfg.Lock.TTL.Std(),
			Wait:   cfg.Lock.Wait.Std(),
			Logger: logger,
		})
		logger.Info("using redis lock", slog.String("prefix", cfg.Lock.Prefix))
	}

	a.files, err = filestore.New(cfg.Storage.FilesDir, storeOpts)
	if err != nil {
		return nil, err
	}

	a.generator, err = pipeline.New(pipeline.Config{
		Builder:        rendercontext.NewBuilder(rendercontext.WithLocation(cfg.Location())),
		Compiler:       compiler.New(templates.FS, compiler.DefaultHelpers()),
		Renderer:       d.newRenderer(cfg, logger),
		Store:          a.files,
		Classification: cfg.Document.Classification,
		Attribution:    cfg.Document.Attribution,
		RenderTimeout:  cfg.Browser.RenderTimeout.Std(),
		Metrics:        a.metrics,
		Tracer:         a.tracing.Tracer(),
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// retryConfig is the pipeline retry policy from configuration.
func (a *app) retryConfig() retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = a.cfg.Retry.MaxAttempts
	rc.InitDelay = a.cfg.Retry.InitDelay.Std()
	rc.MaxDelay = a.cfg.Retry.MaxDelay.Std()
	return rc
}

// chromeReady reports whether a browser binary can be found.
func (a *app) chromeReady() error {
	if p := a.cfg.Browser.ExecPath; p != "" {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("chrome %s: %w", p, err)
		}
		return nil
	}
	if _, ok := pdfrender.FindChrome(); !ok {
		return errors.New("no chrome or chromium binary found")
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
