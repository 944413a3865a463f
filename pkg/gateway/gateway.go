package gateway

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/filestore"
	"github.com/reportforge/reportforge/pkg/pipeline"
	"github.com/reportforge/reportforge/pkg/report"
	"github.com/reportforge/reportforge/pkg/reporterr"
	"github.com/reportforge/reportforge/pkg/retry"
	"github.com/reportforge/reportforge/pkg/telemetry"
)

// ReportSource loads reports and persists generated filenames.
type ReportSource interface {
	GetReport(ctx context.Context, id string) (*report.Report, error)
	UpdateReport(ctx context.Context, id string, fn func(*report.Report) error) (*report.Report, error)
	DeleteReport(ctx context.Context, id string) error
}

// EngagementSource loads engagements.
type EngagementSource interface {
	GetEngagement(ctx context.Context, id string) (*report.Engagement, error)
}

// Generator runs the rendering pipeline.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Files reads and deletes generated documents.
type Files interface {
	Open(id string) (*filestore.File, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Config wires a Server.
type Config struct {
	Reports     ReportSource
	Engagements EngagementSource
	Generator   Generator
	Files       Files

	// NotFound is the error the sources wrap when a record is absent.
	NotFound error

	// Retry controls pipeline re-runs. Retryable is forced to
	// reporterr.IsRetryable.
	Retry retry.Config

	// RateLimit is the sustained generation rate per second; 0 disables
	// throttling. Burst defaults to 1.
	RateLimit float64
	Burst     int

	// Ready reports readiness for /healthz. Nil means always ready.
	Ready func() error

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Server is the HTTP front of the pipeline.
type Server struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	// records serializes generate and delete calls per report so a
	// report never owns more than one live file per variant.
	records *filestore.KeyedMutex
}

// New validates cfg and returns a Server.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Reports == nil:
		return nil, errors.New("gateway: report source is required")
	case cfg.Engagements == nil:
		return nil, errors.New("gateway: engagement source is required")
	case cfg.Generator == nil:
		return nil, errors.New("gateway: generator is required")
	case cfg.Files == nil:
		return nil, errors.New("gateway: file store is required")
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = retry.DefaultConfig()
	}
	cfg.Retry.Retryable = reporterr.IsRetryable

	s := &Server{cfg: cfg, logger: cfg.Logger, records: filestore.NewKeyedMutex()}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s, nil
}

// Handler returns the routed handler with recovery and security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "POST /api/reports/{id}/pdf", s.throttle(s.generate(pipeline.VariantFull)))
	s.handle(mux, "POST /api/reports/{id}/briefing", s.throttle(s.generate(pipeline.VariantBriefing)))
	s.handle(mux, "DELETE /api/reports/{id}/pdf", http.HandlerFunc(s.deleteDocument))
	s.handle(mux, "DELETE /api/reports/{id}", http.HandlerFunc(s.deleteReport))
	s.handle(mux, "GET "+defaults.FilesPath+"{filename}", http.HandlerFunc(s.serveFile))
	s.handle(mux, "GET /healthz", http.HandlerFunc(s.health))
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics.Handler())
	}
	return s.recovery(securityHeaders(mux))
}

// handle registers h under pattern and records per-route request metrics.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.cfg.Metrics.ObserveHTTP(pattern, rec.status)
	}))
}

// throttle rejects generation requests beyond the configured rate.
func (s *Server) throttle(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.cfg.Metrics.IncRateLimited()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:   "rate_limited",
				Message: "too many generation requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Variant  string `json:"variant"`
	Size     int    `json:"size"`
}

func (s *Server) generate(variant pipeline.Variant) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := r.PathValue("id")
		logger := s.logger.With(slog.String("report_id", id), slog.String("variant", string(variant)))

		unlock, ok := s.lockReport(w, r, logger)
		if !ok {
			return
		}
		defer unlock()

		rep, ok := s.loadReport(w, r, id)
		if !ok {
			return
		}

		// A missing engagement is incomplete data, not a missing resource:
		// the pipeline rejects it as MissingData.
		var eng *report.Engagement
		if rep.EngagementID != "" {
			e, err := s.cfg.Engagements.GetEngagement(ctx, rep.EngagementID)
			switch {
			case err == nil:
				eng = e
			case s.isNotFound(err):
			default:
				s.writeError(w, logger, err)
				return
			}
		}

		req := pipeline.Request{Variant: variant, Report: rep, Engagement: eng, ExistingFilename: existingFilename(rep, variant)}

		rc := s.cfg.Retry
		rc.OnRetry = func(attempt int, err error, delay time.Duration) {
			s.cfg.Metrics.IncRenderRetries()
			logger.Warn("retrying generation",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()))
		}
		res, err := retry.DoValue(ctx, rc, func(ctx context.Context) (*pipeline.Result, error) {
			return s.cfg.Generator.Generate(ctx, req)
		})
		if err != nil {
			s.writeError(w, logger, err)
			return
		}

		if res.Filename != req.ExistingFilename {
			var superseded string
			_, err = s.cfg.Reports.UpdateReport(ctx, id, func(rec *report.Report) error {
				if cur := existingFilename(rec, variant); cur != req.ExistingFilename && cur != res.Filename {
					superseded = cur
				}
				setFilename(rec, variant, res.Filename)
				return nil
			})
			if err != nil {
				logger.Error("persist filename failed", slog.String("filename", res.Filename), slog.String("error", err.Error()))
				s.discard(ctx, logger, res.Filename)
				s.writeError(w, logger, err)
				return
			}
			if superseded != "" {
				s.discard(ctx, logger, superseded)
			}
		}

		writeJSON(w, http.StatusOK, GenerateResponse{
			Filename: res.Filename,
			URL:      defaults.FilesPath + res.Filename,
			Variant:  string(res.Variant),
			Size:     res.Size,
		})
	})
}

// lockReport holds the per-report lock for the request's lifetime.
func (s *Server) lockReport(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (func(), bool) {
	unlock, err := s.records.Lock(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, logger, err)
		return nil, false
	}
	return unlock, true
}

// discard deletes a generated file no record points at.
func (s *Server) discard(ctx context.Context, logger *slog.Logger, name string) {
	existed, err := s.cfg.Files.Delete(context.WithoutCancel(ctx), name)
	if err != nil {
		logger.Error("discard orphaned document failed", slog.String("filename", name), slog.String("error", err.Error()))
		return
	}
	if existed {
		s.cfg.Metrics.IncFilesDeleted()
	}
}

func existingFilename(r *report.Report, v pipeline.Variant) string {
	if v == pipeline.VariantBriefing {
		return r.BriefingFilename
	}
	return r.Filename
}

func setFilename(r *report.Report, v pipeline.Variant, name string) {
	if v == pipeline.VariantBriefing {
		r.BriefingFilename = name
		return
	}
	r.Filename = name
}

// deleteDocument removes the generated full report and clears the
// persisted filename.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	logger := s.logger.With(slog.String("report_id", id))

	unlock, ok := s.lockReport(w, r, logger)
	if !ok {
		return
	}
	defer unlock()

	rep, ok := s.loadReport(w, r, id)
	if !ok {
		return
	}
	if rep.Filename == "" {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "report has no generated document"})
		return
	}

	existed, err := s.cfg.Files.Delete(ctx, rep.Filename)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}
	if existed {
		s.cfg.Metrics.IncFilesDeleted()
	}

	if _, err := s.cfg.Reports.UpdateReport(ctx, id, func(rec *report.Report) error {
		rec.Filename = ""
		return nil
	}); err != nil {
		s.writeError(w, logger, err)
		return
	}

	if !existed {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "document not found"})
		return
	}
	logger.Info("document deleted", slog.String("filename", rep.Filename))
	w.WriteHeader(http.StatusNoContent)
}

// deleteReport deletes every generated document of the report, then the
// record. Each persisted filename is deleted exactly once.
func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	logger := s.logger.With(slog.String("report_id", id))

	unlock, ok := s.lockReport(w, r, logger)
	if !ok {
		return
	}
	defer unlock()

	rep, ok := s.loadReport(w, r, id)
	if !ok {
		return
	}

	for _, name := range rep.GeneratedFiles() {
		existed, err := s.cfg.Files.Delete(ctx, name)
		if err != nil {
			s.writeError(w, logger, err)
			return
		}
		if existed {
			s.cfg.Metrics.IncFilesDeleted()
		}
	}

	if err := s.cfg.Reports.DeleteReport(ctx, id); err != nil {
		if s.isNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "report not found"})
			return
		}
		s.writeError(w, logger, err)
		return
	}
	logger.Info("report deleted", slog.Int("documents", len(rep.GeneratedFiles())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	f, err := s.cfg.Files.Open(name)
	if err != nil {
		if errors.Is(err, filestore.ErrInvalidIdentity) || errors.Is(err, fs.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "document not found"})
			return
		}
		s.writeError(w, s.logger.With(slog.String("filename", name)), err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", defaults.ContentTypePDF)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Name))
	http.ServeContent(w, r, f.Name, f.ModTime, f)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Ready != nil {
		if err := s.cfg.Ready(); err != nil {
			s.logger.Warn("not ready", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable", Service: defaults.ToolName, Version: defaults.Version})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Service: defaults.ToolName, Version: defaults.Version})
}

type healthBody struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// loadReport fetches the report or writes the error response.
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request, id string) (*report.Report, bool) {
	rep, err := s.cfg.Reports.GetReport(r.Context(), id)
	if err == nil {
		return rep, true
	}
	if s.isNotFound(err) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "report not found"})
		return nil, false
	}
	s.writeError(w, s.logger.With(slog.String("report_id", id)), err)
	return nil, false
}

func (s *Server) isNotFound(err error) bool {
	return s.cfg.NotFound != nil && errors.Is(err, s.cfg.NotFound)
}
