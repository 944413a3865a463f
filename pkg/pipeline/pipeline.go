package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/reportforge/reportforge/pkg/chart"
	"github.com/reportforge/reportforge/pkg/compiler"
	"github.com/reportforge/reportforge/pkg/duration"
	"github.com/reportforge/reportforge/pkg/filestore"
	"github.com/reportforge/reportforge/pkg/pdfrender"
	"github.com/reportforge/reportforge/pkg/rendercontext"
	"github.com/reportforge/reportforge/pkg/report"
	"github.com/reportforge/reportforge/pkg/reporterr"
	"github.com/reportforge/reportforge/pkg/telemetry"
)

// Variant selects the document layout.
type Variant string

const (
	VariantFull     Variant = "full"
	VariantBriefing Variant = "briefing"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantFull, VariantBriefing:
		return v, nil
	}
	return "", reporterr.MissingData("variant", fmt.Sprintf("must be %q or %q", VariantFull, VariantBriefing))
}

// Stage names used in spans, metrics and logs.
const (
	StageContext = "context"
	StageChart   = "chart"
	StageCompile = "compile"
	StageRender  = "render"
	StageStore   = "store"
)

// Request is one generation.
type Request struct {
	Variant    Variant
	Report     *report.Report
	Engagement *report.Engagement

	// ExistingFilename is the identity persisted from a previous
	// generation. When set the document is overwritten in place.
	ExistingFilename string
}

// Result is a successful generation.
type Result struct {
	Filename string
	Variant  Variant
	Size     int
}

// Compiler compiles a named template against a render context.
type Compiler interface {
	Compile(ctx context.Context, name compiler.Name, data any) (string, error)
}

// Store persists rendered documents.
type Store interface {
	Save(ctx context.Context, data []byte, kind filestore.Kind, existing string) (string, error)
}

// Config wires a Generator.
type Config struct {
	Builder  *rendercontext.Builder
	Compiler Compiler
	Renderer pdfrender.Renderer
	Store    Store

	// Classification and Attribution label the full-report header and footer.
	Classification string
	Attribution    string

	// RenderTimeout bounds the render stage (default: duration.RenderTotal).
	RenderTimeout time.Duration

	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// Generator runs the pipeline. It is stateless between calls and safe for
// concurrent use.
type Generator struct {
	cfg Config
}

// New validates cfg and returns a Generator.
func New(cfg Config) (*Generator, error) {
	switch {
	case cfg.Compiler == nil:
		return nil, errors.New("pipeline: compiler is required")
	case cfg.Renderer == nil:
		return nil, errors.New("pipeline: renderer is required")
	case cfg.Store == nil:
		return nil, errors.New("pipeline: store is required")
	}
	if cfg.Builder == nil {
		cfg.Builder = rendercontext.NewBuilder()
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = duration.RenderTotal
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer(telemetry.TracerName)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Generator{cfg: cfg}, nil
}

// Generate produces and stores one document. Errors are classified by the
// reporterr taxonomy.
func (g *Generator) Generate(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	variant := string(req.Variant)
	reportID := ""
	if req.Report != nil {
		reportID = req.Report.ID
	}

	ctx, span := g.cfg.Tracer.Start(ctx, "pipeline.generate",
		trace.WithAttributes(
			attribute.String("report_id", reportID),
			attribute.String("variant", variant),
			attribute.Bool("regenerate", req.ExistingFilename != ""),
		))
	log := g.cfg.Logger.With(slog.String("report_id", reportID), slog.String("variant", variant))

	defer func() {
		kind := ""
		if err != nil {
			kind = string(reporterr.KindOf(err))
			log.Warn("generation failed",
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)))
		} else {
			span.SetAttributes(attribute.String("filename", res.Filename))
			log.Info("document generated",
				slog.String("filename", res.Filename),
				slog.Int("bytes", res.Size),
				slog.Duration("duration", time.Since(start)))
		}
		g.cfg.Metrics.ObserveGeneration(variant, kind, err)
		telemetry.EndSpan(span, err)
	}()

	switch req.Variant {
	case VariantFull, VariantBriefing:
	default:
		return nil, reporterr.MissingData("variant", fmt.Sprintf("unknown variant %q", req.Variant))
	}

	var rc *rendercontext.Context
	err = g.stage(ctx, StageContext, variant, func(context.Context) error {
		var err error
		if req.Variant == VariantBriefing {
			rc, err = g.cfg.Builder.BuildBriefing(req.Report, req.Engagement)
		} else {
			rc, err = g.cfg.Builder.Build(req.Report, req.Engagement)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if req.Variant == VariantFull {
		err = g.stage(ctx, StageChart, variant, func(context.Context) error {
			img, err := chart.Render(rc.SeverityCounts)
			if err != nil {
				return err
			}
			rc = rc.WithChart(img.DataURI())
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var html string
	err = g.stage(ctx, StageCompile, variant, func(ctx context.Context) error {
		var err error
		html, err = g.cfg.Compiler.Compile(ctx, templateFor(req.Variant), rc)
		if err != nil && reporterr.KindOf(err) == reporterr.KindUnknown {
			err = &reporterr.TemplateCompilationError{Template: string(templateFor(req.Variant)), Cause: err}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var pdf []byte
	err = g.stage(ctx, StageRender, variant, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, g.cfg.RenderTimeout)
		defer cancel()

		var err error
		pdf, err = g.cfg.Renderer.Render(ctx, html, g.layoutFor(req.Variant, rc))
		if err != nil && reporterr.KindOf(err) == reporterr.KindUnknown {
			err = &reporterr.RenderError{Phase: StageRender, Cause: err}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	g.cfg.Metrics.ObserveDocument(variant, len(pdf))

	var filename string
	err = g.stage(ctx, StageStore, variant, func(ctx context.Context) error {
		var err error
		filename, err = g.cfg.Store.Save(ctx, pdf, kindFor(req.Variant), req.ExistingFilename)
		if err != nil && reporterr.KindOf(err) == reporterr.KindUnknown {
			err = &reporterr.FileStoreError{Op: "save", Identity: req.ExistingFilename, Cause: err}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Result{Filename: filename, Variant: req.Variant, Size: len(pdf)}, nil
}

// stage runs fn in its own span and records its duration.
func (g *Generator) stage(ctx context.Context, name, variant string, fn func(context.Context) error) error {
	ctx, span := g.cfg.Tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(attribute.String("stage", name)))
	start := time.Now()

	err := fn(ctx)

	g.cfg.Metrics.ObserveStage(name, variant, time.Since(start), err)
	telemetry.EndSpan(span, err)
	if err != nil {
		g.cfg.Logger.Debug("stage failed",
			slog.String("stage", name),
			slog.String("variant", variant),
			slog.String("error", err.Error()))
	}
	return err
}

func (g *Generator) layoutFor(v Variant, rc *rendercontext.Context) pdfrender.Layout {
	if v == VariantBriefing {
		return pdfrender.BriefingLayout()
	}
	return pdfrender.FullReportLayout(rc.Engagement.CustomerName, g.cfg.Classification, g.cfg.Attribution)
}

func templateFor(v Variant) compiler.Name {
	if v == VariantBriefing {
		return compiler.Briefing
	}
	return compiler.Full
}

func kindFor(v Variant) filestore.Kind {
	if v == VariantBriefing {
		return filestore.KindBriefing
	}
	return filestore.KindFull
}
