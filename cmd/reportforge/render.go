package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/reportforge/reportforge/pkg/cli"
	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/pipeline"
	"github.com/reportforge/reportforge/pkg/recordstore"
	"github.com/reportforge/reportforge/pkg/rendercontext"
	"github.com/reportforge/reportforge/pkg/report"
	"github.com/reportforge/reportforge/pkg/reporterr"
	"github.com/reportforge/reportforge/pkg/retry"
	"github.com/reportforge/reportforge/pkg/ui"
)

type renderFlags struct {
	reportID string
	variant  string
	out      string
	existing string
}

func newRenderCmd(d *deps, g *globalFlags) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render BUNDLE",
		Short: "Render one report from a JSON bundle",
		Long:  "Render loads reports and engagements from a JSON bundle ({\"reports\": [...], \"engagements\": [...]}) and generates one document.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := pipeline.ParseVariant(f.variant)
			if err != nil {
				return &cli.UsageError{Err: err}
			}

			cfg, logger, err := loadConfig(d, g)
			if err != nil {
				return err
			}

			ctx, cancel := cli.SignalContext(cmd.Context(), cfg.Server.ShutdownTimeout.Std(), d.stderr)
			defer cancel()

			bundle, err := recordstore.LoadBundle(args[0])
			if err != nil {
				return &cli.UsageError{Err: fmt.Errorf("bundle %s: %w", args[0], err)}
			}
			records := recordstore.NewMemory()
			if err := records.Import(bundle); err != nil {
				return err
			}
			rep, eng, err := lookup(ctx, records, f.reportID)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger, d)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			existing := f.existing
			if existing == "" {
				if variant == pipeline.VariantBriefing {
					existing = rep.BriefingFilename
				} else {
					existing = rep.Filename
				}
			}

			rc := a.retryConfig()
			rc.Retryable = reporterr.IsRetryable
			rc.OnRetry = func(attempt int, err error, delay time.Duration) {
				logger.Warn("retrying generation", slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("error", err.Error()))
			}

			start := time.Now()
			activity := ui.StartActivity(d.stderr, fmt.Sprintf("Rendering %s document for %q", variant, rep.Title))
			res, err := retry.DoValue(ctx, rc, func(ctx context.Context) (*pipeline.Result, error) {
				return a.generator.Generate(ctx, pipeline.Request{
					Variant:          variant,
					Report:           rep,
					Engagement:       eng,
					ExistingFilename: existing,
				})
			})
			activity.Stop()
			if err != nil {
				return err
			}

			path := filepath.Join(a.files.Dir(), res.Filename)
			if f.out != "" {
				if err := copyDocument(a, res.Filename, f.out); err != nil {
					return err
				}
				path = f.out
			}

			counts := [4]int{}
			if view, err := rendercontext.NewBuilder().Build(rep, eng); err == nil {
				counts = view.SeverityCounts.Ordered()
			}
			ui.PrintRenderSummary(d.stdout, ui.RenderSummary{
				Variant:  string(res.Variant),
				Filename: res.Filename,
				Path:     path,
				Size:     int64(res.Size),
				Elapsed:  time.Since(start),
				Counts:   counts,
			})
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.reportID, "report", "r", "", "report ID to render (default: the only report in the bundle)")
	cmd.Flags().StringVar(&f.variant, "variant", string(pipeline.VariantFull), "document variant: full or briefing")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "copy the generated PDF to this path")
	cmd.Flags().StringVar(&f.existing, "existing", "", "identity of a previous generation to overwrite")
	return cmd
}

// lookup resolves the report and its engagement. An absent engagement is
// left nil so the pipeline reports it as missing data.
func lookup(ctx context.Context, records *recordstore.Store, id string) (*report.Report, *report.Engagement, error) {
	if id == "" {
		ids := records.ReportIDs()
		if len(ids) != 1 {
			return nil, nil, &cli.UsageError{Err: fmt.Errorf("bundle has %d reports; select one with --report", len(ids))}
		}
		id = ids[0]
	}

	rep, err := records.GetReport(ctx, id)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, nil, reporterr.MissingData("report", fmt.Sprintf("%q not found in bundle", id))
	}
	if err != nil {
		return nil, nil, err
	}

	eng, err := records.GetEngagement(ctx, rep.EngagementID)
	if err != nil && !errors.Is(err, recordstore.ErrNotFound) {
		return nil, nil, err
	}
	return rep, eng, nil
}

func copyDocument(a *app, id, dst string) error {
	src, err := a.files.Open(id)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaults.FileMode)
	if err != nil {
		return &reporterr.FileStoreError{Op: "export", Identity: id, Cause: err}
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return &reporterr.FileStoreError{Op: "export", Identity: id, Cause: err}
	}
	if err := out.Close(); err != nil {
		return &reporterr.FileStoreError{Op: "export", Identity: id, Cause: err}
	}
	return nil
}
