package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportforge/reportforge/internal/pdftest"
	"github.com/reportforge/reportforge/pkg/filestore"
	"github.com/reportforge/reportforge/pkg/jsonutil"
	"github.com/reportforge/reportforge/pkg/pipeline"
	"github.com/reportforge/reportforge/pkg/recordstore"
	"github.com/reportforge/reportforge/pkg/report"
	"github.com/reportforge/reportforge/pkg/reporterr"
	"github.com/reportforge/reportforge/pkg/retry"
	"github.com/reportforge/reportforge/pkg/telemetry"
)

// fakeGenerator stores a small real PDF through the file store, failing
// with queued errors first.
type fakeGenerator struct {
	store *filestore.Store

	mu       sync.Mutex
	errs     []error
	requests []pipeline.Request
	panics   bool
}

func (g *fakeGenerator) Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	if g.panics {
		g.mu.Unlock()
		panic("generator exploded")
	}
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		g.mu.Unlock()
		return nil, err
	}
	g.mu.Unlock()

	if req.Engagement == nil {
		return nil, reporterr.MissingData("engagement", "")
	}
	doc := pdftest.MustDocument(req.Report.Title, 1)
	kind := filestore.KindFull
	if req.Variant == pipeline.VariantBriefing {
		kind = filestore.KindBriefing
	}
	name, err := g.store.Save(ctx, doc, kind, req.ExistingFilename)
	if err != nil {
		return nil, err
	}
	return &pipeline.Result{Filename: name, Variant: req.Variant, Size: len(doc)}, nil
}

func (g *fakeGenerator) failWith(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs = append(g.errs, errs...)
}

func (g *fakeGenerator) panicOnCall() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.panics = true
}

func (g *fakeGenerator) seen() []pipeline.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]pipeline.Request(nil), g.requests...)
}

func (g *fakeGenerator) calls() int { return len(g.seen()) }

// countingFiles records every delete.
type countingFiles struct {
	*filestore.Store
	mu      sync.Mutex
	deleted []string
}

func (c *countingFiles) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	c.deleted = append(c.deleted, id)
	c.mu.Unlock()
	return c.Store.Delete(ctx, id)
}

func (c *countingFiles) deletes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

type harness struct {
	srv     *httptest.Server
	records *recordstore.Store
	files   *countingFiles
	gen     *fakeGenerator
	metrics *telemetry.Metrics
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	store, err := filestore.New(t.TempDir(), filestore.Options{})
	require.NoError(t, err)

	records := recordstore.NewMemory()
	require.NoError(t, records.Import(&recordstore.Bundle{
		Reports: []*report.Report{
			{ID: "r-1", EngagementID: "e-1", Title: "External"},
			{ID: "r-orphan", EngagementID: "gone", Title: "Orphan"},
		},
		Engagements: []*report.Engagement{{ID: "e-1", Name: "Q1"}},
	}))

	h := &harness{
		records: records,
		files:   &countingFiles{Store: store},
		gen:     &fakeGenerator{store: store},
		metrics: telemetry.NewMetrics(),
	}
	cfg := Config{
		Reports:     records,
		Engagements: records,
		Generator:   h.gen,
		Files:       h.files,
		NotFound:    recordstore.ErrNotFound,
		Retry:       retry.Config{MaxAttempts: 3, InitDelay: time.Millisecond, MaxDelay: time.Millisecond, Strategy: retry.Constant},
		Metrics:     h.metrics,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)

	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, jsonutil.DecodeStrict(resp.Body, &v))
	return v
}

func (h *harness) report(t *testing.T, id string) *report.Report {
	t.Helper()
	r, err := h.records.GetReport(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestGenerateFullReport(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodPost, "/api/reports/r-1/pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := decode[GenerateResponse](t, resp)

	assert.Equal(t, "full", body.Variant)
	assert.Equal(t, "/files/"+body.Filename, body.URL)
	assert.Equal(t, body.Filename, h.report(t, "r-1").Filename)

	file := h.do(t, http.MethodGet, body.URL)
	require.Equal(t, http.StatusOK, file.StatusCode)
	assert.Equal(t, "application/pdf", file.Header.Get("Content-Type"))
	data, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Len(t, data, body.Size)
}

func TestRegenerateReusesFilename(t *testing.T) {
	h := newHarness(t, nil)

	first := decode[GenerateResponse](t, h.do(t, http.MethodPost, "/api/reports/r-1/pdf"))
	second := decode[GenerateResponse](t, h.do(t, http.MethodPost, "/api/reports/r-1/pdf"))

	assert.Equal(t, first.Filename, second.Filename)
	reqs := h.gen.seen()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].ExistingFilename)
	assert.Equal(t, first.Filename, reqs[1].ExistingFilename)
}

// pdfFiles lists the documents currently in the store directory.
func (h *harness) pdfFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.files.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".pdf" {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestConcurrentGenerateKeepsOneFile(t *testing.T) {
	h := newHarness(t, nil)

	const n = 8
	statuses := make(chan int, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.srv.Client().Post(h.srv.URL+"/api/reports/r-1/pdf", "application/json", nil)
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for code := range statuses {
		assert.Equal(t, http.StatusOK, code)
	}
	files := h.pdfFiles(t)
	require.Len(t, files, 1)
	assert.Equal(t, files[0], h.report(t, "r-1").Filename)
	assert.Equal(t, n, h.gen.calls())
}

// failingUpdates refuses to persist filenames.
type failingUpdates struct {
	ReportSource
}

func (failingUpdates) UpdateReport(context.Context, string, func(*report.Report) error) (*report.Report, error) {
	return nil, errors.New("records unavailable")
}

func TestGeneratePersistFailureRemovesDocument(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.Reports = failingUpdates{ReportSource: cfg.Reports}
	})

	resp := h.do(t, http.MethodPost, "/api/reports/r-1/pdf")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, h.pdfFiles(t))
	assert.Len(t, h.files.deletes(), 1)
	assert.Empty(t, h.report(t, "r-1").Filename)
}

// racingUpdates points the record at another document just before the
// gateway persists its own, as a writer outside this process would.
type racingUpdates struct {
	ReportSource
	other string
}

func (r racingUpdates) UpdateReport(ctx context.Context, id string, fn func(*report.Report) error) (*report.Report, error) {
	if _, err := r.ReportSource.UpdateReport(ctx, id, func(rec *report.Report) error {
		rec.Filename = r.other
		return nil
	}); err != nil {
		return nil, err
	}
	return r.ReportSource.UpdateReport(ctx, id, fn)
}

func TestGenerateDiscardsSupersededDocument(t *testing.T) {
	var other string
	h := newHarness(t, func(cfg *Config) {
		store := cfg.Files.(*countingFiles).Store
		name, err := store.Save(context.Background(), pdftest.MustDocument("other", 1), filestore.KindFull, "")
		require.NoError(t, err)
		other = name
		cfg.Reports = racingUpdates{ReportSource: cfg.Reports, other: name}
	})

	body := decode[GenerateResponse](t, h.do(t, http.MethodPost, "/api/reports/r-1/pdf"))

	assert.NotEqual(t, other, body.Filename)
	assert.Equal(t, body.Filename, h.report(t, "r-1").Filename)
	assert.Equal(t, []string{other}, h.files.deletes())
	assert.Equal(t, []string{body.Filename}, h.pdfFiles(t))
}

func TestGenerateBriefing(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodPost, "/api/reports/r-1/briefing")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[GenerateResponse](t, resp)

	assert.Equal(t, "briefing", body.Variant)
	assert.True(t, strings.HasPrefix(body.Filename, "briefing-"))
	r := h.report(t, "r-1")
	assert.Equal(t, body.Filename, r.BriefingFilename)
	assert.Empty(t, r.Filename)
}

func TestGenerateUnknownReport(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodPost, "/api/reports/nope/pdf")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[errorBody](t, resp).Error)
	assert.Zero(t, h.gen.calls())
}

func TestGenerateMissingEngagement(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodPost, "/api/reports/r-orphan/pdf")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "missing_data", body.Error)
	assert.Equal(t, "engagement is required", body.Message)
	assert.Equal(t, 1, h.gen.calls(), "missing data is not retried")
}

func TestGenerateRetriesRenderFailures(t *testing.T) {
	h := newHarness(t, nil)
	renderErr := &reporterr.RenderError{Phase: "launch", Cause: errors.New("chrome crashed")}
	h.gen.failWith(renderErr, renderErr)

	resp := h.do(t, http.MethodPost, "/api/reports/r-1/pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, h.gen.calls())

	metrics := h.do(t, http.MethodGet, "/metrics")
	out, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(out), "reportforge_render_retries_total 2")
}

func TestGenerateRenderFailureExhausted(t *testing.T) {
	h := newHarness(t, nil)
	renderErr := &reporterr.RenderError{Phase: "idle", Cause: errors.New("/tmp/secret path")}
	h.gen.failWith(renderErr, renderErr, renderErr)

	resp := h.do(t, http.MethodPost, "/api/reports/r-1/pdf")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "render", body.Error)
	assert.NotContains(t, body.Message, "/tmp")
	assert.Equal(t, 3, h.gen.calls())
	assert.Empty(t, h.report(t, "r-1").Filename)
}

func TestGenerateTemplateFailureNotRetried(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.failWith(&reporterr.TemplateCompilationError{Template: "full", Cause: errors.New("boom")})

	resp := h.do(t, http.MethodPost, "/api/reports/r-1/pdf")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "template_compilation", body.Error)
	assert.NotContains(t, body.Message, "boom")
	assert.Equal(t, 1, h.gen.calls())
}

func TestGenerateRateLimited(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.RateLimit = 0.001
		c.Burst = 1
	})

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/reports/r-1/pdf").StatusCode)
	resp := h.do(t, http.MethodPost, "/api/reports/r-1/briefing")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", decode[errorBody](t, resp).Error)
	assert.Equal(t, 1, h.gen.calls())

	// Non-generation routes are never throttled.
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz").StatusCode)
}

func TestDeleteReportDeletesEachDocumentOnce(t *testing.T) {
	h := newHarness(t, nil)
	full := decode[GenerateResponse](t, h.do(t, http.MethodPost, "/api/reports/r-1/pdf"))
	brief := decode[GenerateResponse](t, h.do(t, http.MethodPost, "/api/reports/r-1/briefing"))

	resp := h.do(t, http.MethodDelete, "/api/reports/r-1")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, []string{full.Filename, brief.Filename}, h.files.deletes())
	_, err := h.records.GetReport(context.Background(), "r-1")
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
	ok, err := h.files.Exists(full.Filename)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteReportWithoutDocuments(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodDelete, "/api/reports/r-1")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, h.files.deletes())

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/api/reports/r-1").StatusCode)
}

func TestDeleteDocument(t *testing.T) {
	h := newHarness(t, nil)
	full := decode[GenerateResponse](t, h.do(t, http.MethodPost, "/api/reports/r-1/pdf"))

	resp := h.do(t, http.MethodDelete, "/api/reports/r-1/pdf")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{full.Filename}, h.files.deletes())
	assert.Empty(t, h.report(t, "r-1").Filename)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, full.URL).StatusCode)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/api/reports/r-1/pdf").StatusCode)
	assert.Len(t, h.files.deletes(), 1)
}

func TestServeFileNotFound(t *testing.T) {
	h := newHarness(t, nil)

	for _, path := range []string{"/files/missing.pdf", "/files/.hidden.pdf", "/files/notes.txt"} {
		resp := h.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "ok", decode[healthBody](t, resp).Status)

	down := newHarness(t, func(c *Config) {
		c.Ready = func() error { return errors.New("chrome not found") }
	})
	resp = down.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", decode[healthBody](t, resp).Status)
}

func TestPanicRecovered(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.panicOnCall()

	resp := h.do(t, http.MethodPost, "/api/reports/r-1/pdf")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", decode[errorBody](t, resp).Error)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
