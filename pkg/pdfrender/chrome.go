package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/reportforge/reportforge/pkg/duration"
	"github.com/reportforge/reportforge/pkg/reporterr"
)

// Render phases reported in reporterr.RenderError.
const (
	PhaseLaunch   = "launch"
	PhaseLoad     = "load"
	PhaseIdle     = "idle"
	PhasePrint    = "print"
	PhaseValidate = "validate"
)

// ErrIdleTimeout is wrapped when a page never reaches network idle.
var ErrIdleTimeout = errors.New("pdfrender: page did not reach network idle")

// Renderer prints a compiled HTML document to PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string, layout Layout) ([]byte, error)
}

// Config configures a ChromeRenderer.
type Config struct {
	// ExecPath is the Chrome binary. Empty lets chromedp search the usual
	// locations.
	ExecPath string

	// IdleTimeout bounds the wait for the networkIdle lifecycle event.
	IdleTimeout time.Duration

	// TeardownTimeout bounds graceful browser shutdown before the process
	// is killed.
	TeardownTimeout time.Duration

	// TempDir is where per-session document directories are created.
	TempDir string

	// NoSandbox disables the Chrome sandbox, required when running as root
	// in most containers.
	NoSandbox bool

	Logger *slog.Logger

	// OnTransition observes session state changes.
	OnTransition func(from, to State)
}

// ChromeRenderer renders with a fresh headless Chrome per call.
// It keeps no browser between calls and is safe for concurrent use.
type ChromeRenderer struct {
	cfg    Config
	logger *slog.Logger
}

var _ Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer creates a ChromeRenderer, filling zero durations with defaults.
func NewChromeRenderer(cfg Config) *ChromeRenderer {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = duration.BrowserIdle
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = duration.BrowserTeardown
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeRenderer{cfg: cfg, logger: logger}
}

// Render loads html in a disposable browser and prints it with layout.
// All failures are *reporterr.RenderError.
func (r *ChromeRenderer) Render(ctx context.Context, html string, layout Layout) ([]byte, error) {
	sess := newSession(r.cfg.OnTransition)
	if err := sess.transition(StateRendering); err != nil {
		return nil, &reporterr.RenderError{Phase: PhaseLaunch, Cause: err}
	}

	data, err := r.render(ctx, html, layout)
	if err != nil {
		sess.fail()
		r.logger.Warn("render failed", slog.String("error", err.Error()))
		return nil, err
	}
	if err := sess.transition(StateEmitted); err != nil {
		return nil, &reporterr.RenderError{Phase: PhaseValidate, Cause: err}
	}
	return data, nil
}

func (r *ChromeRenderer) render(ctx context.Context, html string, layout Layout) ([]byte, error) {
	fail := func(phase string, err error) ([]byte, error) {
		return nil, &reporterr.RenderError{Phase: phase, Cause: err}
	}

	if err := layout.Validate(); err != nil {
		return fail(PhasePrint, err)
	}

	docURL, cleanup, err := r.writeDocument(html)
	if err != nil {
		return fail(PhaseLoad, err)
	}
	defer cleanup()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer r.teardown(browserCtx, browserCancel, allocCancel)

	start := time.Now()
	if err := chromedp.Run(browserCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		return fail(PhaseLaunch, err)
	}
	r.logger.Debug("browser launched", slog.Duration("duration", time.Since(start)))

	// The idle bound starts before navigation: a subresource that never
	// answers also holds back the load event.
	idle := watchNetworkIdle(browserCtx)
	idleCtx, idleCancel := context.WithTimeout(browserCtx, r.cfg.IdleTimeout)
	defer idleCancel()
	idleErr := func() error {
		if browserCtx.Err() != nil {
			return context.Cause(browserCtx)
		}
		return fmt.Errorf("%w within %s", ErrIdleTimeout, r.cfg.IdleTimeout)
	}

	if err := chromedp.Run(idleCtx, navigate(docURL)); err != nil {
		if idleCtx.Err() != nil {
			return fail(PhaseIdle, idleErr())
		}
		return fail(PhaseLoad, err)
	}

	select {
	case <-idle:
	case <-idleCtx.Done():
		return fail(PhaseIdle, idleErr())
	}

	var pdf []byte
	err = chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = layout.params().Do(ctx)
		return err
	}))
	if err != nil {
		return fail(PhasePrint, err)
	}

	if err := Validate(pdf); err != nil {
		return fail(PhaseValidate, err)
	}
	r.logger.Debug("document printed",
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return pdf, nil
}

// navigate starts loading urlstr without waiting for the load event.
func navigate(urlstr string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, _, errorText, _, err := page.Navigate(urlstr).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error: %s", errorText)
		}
		return nil
	}
}

// writeDocument stores html in a private directory and returns its file URL.
func (r *ChromeRenderer) writeDocument(html string) (string, func(), error) {
	dir, err := os.MkdirTemp(r.cfg.TempDir, "reportforge-render-*")
	if err != nil {
		return "", nil, fmt.Errorf("create session dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	file := filepath.Join(dir, "document.html")
	if err := os.WriteFile(file, []byte(html), 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write document: %w", err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(file)}
	return u.String(), cleanup, nil
}

func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	if r.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}
	return opts
}

// teardown cancels the browser and allocator contexts and waits up to
// TeardownTimeout before killing the browser process.
func (r *ChromeRenderer) teardown(browserCtx context.Context, browserCancel, allocCancel context.CancelFunc) {
	// The process handle is gone once the contexts are cancelled.
	var proc *os.Process
	if c := chromedp.FromContext(browserCtx); c != nil && c.Browser != nil {
		proc = c.Browser.Process()
	}

	done := make(chan struct{})
	go func() {
		browserCancel()
		allocCancel()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.cfg.TeardownTimeout):
		if proc != nil {
			_ = proc.Kill()
		}
		r.logger.Warn("browser teardown timed out, killed process",
			slog.Duration("timeout", r.cfg.TeardownTimeout))
	}
}

// watchNetworkIdle returns a channel closed on the first networkIdle event
// of the next document load. Events of earlier loads are ignored by
// tracking the loader of the first init event seen.
func watchNetworkIdle(ctx context.Context) <-chan struct{} {
	idle := make(chan struct{})
	var (
		once   sync.Once
		mu     sync.Mutex
		loader string
	)
	chromedp.ListenTarget(ctx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch e.Name {
		case "init":
			if loader == "" {
				loader = e.LoaderID.String()
			}
		case "networkIdle":
			if loader != "" && e.LoaderID.String() == loader {
				once.Do(func() { close(idle) })
			}
		}
	})
	return idle
}

var chromeNames = []string{
	"chrome", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "headless-shell",
}

var chromePaths = []string{
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	`/usr/bin/google-chrome`,
	`/usr/bin/chromium-browser`,
	`/usr/bin/chromium`,
	`/snap/bin/chromium`,
	`/Applications/Google Chrome.app/Contents/MacOS/Google Chrome`,
	`/Applications/Chromium.app/Contents/MacOS/Chromium`,
}

// FindChrome returns the path of an installed Chrome or Chromium binary.
func FindChrome() (string, bool) {
	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil && path != "" {
			return path, true
		}
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
