// Package config loads reportforge settings from YAML and the environment.
//
// Precedence, lowest first: Default(), the YAML file given to Load, then
// REPORTFORGE_* environment variables. Durations are written as Go
// duration strings ("30s", "2m").
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/duration"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REPORTFORGE_"

// Config holds all runtime settings.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Browser   BrowserConfig   `yaml:"browser"`
	Document  DocumentConfig  `yaml:"document"`
	Lock      LockConfig      `yaml:"lock"`
	Retry     RetryConfig     `yaml:"retry"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	RateLimit       float64  `yaml:"rate_limit"` // generation requests per second, 0 disables
	Burst           int      `yaml:"burst"`
}

// StorageConfig locates generated files and the record store.
type StorageConfig struct {
	FilesDir    string `yaml:"files_dir"`
	RecordsFile string `yaml:"records_file"`
}

// BrowserConfig configures the headless Chrome renderer.
type BrowserConfig struct {
	ExecPath        string   `yaml:"exec_path"` // empty = auto-detect
	NoSandbox       bool     `yaml:"no_sandbox"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	TeardownTimeout Duration `yaml:"teardown_timeout"`
	RenderTimeout   Duration `yaml:"render_timeout"`
}

// DocumentConfig holds document-wide labels.
type DocumentConfig struct {
	Classification string `yaml:"classification"`
	Attribution    string `yaml:"attribution"`
	Timezone       string `yaml:"timezone"`
}

// LockConfig selects the per-identity lock. An empty RedisURL keeps
// locking in process.
type LockConfig struct {
	RedisURL string   `yaml:"redis_url"`
	Prefix   string   `yaml:"prefix"`
	TTL      Duration `yaml:"ttl"`
	Wait     Duration `yaml:"wait"`
}

// RetryConfig bounds pipeline re-runs after renderer failures.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	InitDelay   Duration `yaml:"init_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty disables tracing
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
	Metrics      bool   `yaml:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            defaults.ListenAddr,
			ReadTimeout:     Duration(duration.ServerRead),
			WriteTimeout:    Duration(duration.ServerWrite),
			ShutdownTimeout: Duration(duration.ServerShutdown),
			RateLimit:       defaults.GenerateRPS,
			Burst:           defaults.GenerateBurst,
		},
		Storage: StorageConfig{
			FilesDir:    "data/files",
			RecordsFile: "data/records.json",
		},
		Browser: BrowserConfig{
			IdleTimeout:     Duration(duration.BrowserIdle),
			TeardownTimeout: Duration(duration.BrowserTeardown),
			RenderTimeout:   Duration(duration.RenderTotal),
		},
		Document: DocumentConfig{
			Classification: defaults.Classification,
			Attribution:    defaults.Attribution,
			Timezone:       "UTC",
		},
		Lock: LockConfig{
			Prefix: defaults.ToolName + ":lock:",
			TTL:    Duration(duration.LockTTL),
			Wait:   Duration(duration.LockTTL),
		},
		Retry: RetryConfig{
			MaxAttempts: defaults.RetryMedium,
			InitDelay:   Duration(duration.RetryInit),
			MaxDelay:    Duration(duration.RetryMax),
		},
		Telemetry: TelemetryConfig{
			ServiceName: defaults.ToolName,
			Metrics:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over Default(), applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ApplyEnv overrides fields from REPORTFORGE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	dur := func(dst *Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*dst = Duration(d)
			return nil
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		}
	}

	overrides := []struct {
		name  string
		apply func(string) error
	}{
		{"ADDR", str(&c.Server.Addr)},
		{"FILES_DIR", str(&c.Storage.FilesDir)},
		{"RECORDS_FILE", str(&c.Storage.RecordsFile)},
		{"CHROME_PATH", str(&c.Browser.ExecPath)},
		{"NO_SANDBOX", boolean(&c.Browser.NoSandbox)},
		{"IDLE_TIMEOUT", dur(&c.Browser.IdleTimeout)},
		{"RENDER_TIMEOUT", dur(&c.Browser.RenderTimeout)},
		{"CLASSIFICATION", str(&c.Document.Classification)},
		{"TIMEZONE", str(&c.Document.Timezone)},
		{"REDIS_URL", str(&c.Lock.RedisURL)},
		{"OTLP_ENDPOINT", str(&c.Telemetry.OTLPEndpoint)},
		{"OTLP_INSECURE", boolean(&c.Telemetry.Insecure)},
		{"LOG_LEVEL", str(&c.Log.Level)},
		{"LOG_FORMAT", str(&c.Log.Format)},
	}
	for _, o := range overrides {
		v, ok := lookup(EnvPrefix + o.name)
		if !ok {
			continue
		}
		if err := o.apply(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, o.name, err)
		}
	}
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error
	required := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingRequired, name))
		}
	}
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	required("server.addr", c.Server.Addr)
	required("storage.files_dir", c.Storage.FilesDir)

	if c.Server.RateLimit < 0 {
		invalid("server.rate_limit must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		invalid("server.burst must be >= 1 when rate limiting")
	}
	for name, d := range map[string]Duration{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"server.shutdown_timeout":  c.Server.ShutdownTimeout,
		"browser.idle_timeout":     c.Browser.IdleTimeout,
		"browser.teardown_timeout": c.Browser.TeardownTimeout,
		"browser.render_timeout":   c.Browser.RenderTimeout,
		"lock.ttl":                 c.Lock.TTL,
	} {
		if d <= 0 {
			invalid("%s must be positive", name)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		invalid("retry.max_attempts must be >= 1")
	}
	if c.Retry.InitDelay < 0 || c.Retry.MaxDelay < c.Retry.InitDelay {
		invalid("retry delays must satisfy 0 <= init_delay <= max_delay")
	}
	if _, err := time.LoadLocation(c.Document.Timezone); err != nil {
		invalid("document.timezone %q: %v", c.Document.Timezone, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		invalid("log.level: %v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		invalid("log.format %q: want text or json", c.Log.Format)
	}
	return errors.Join(errs...)
}

// Location returns the document timezone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Document.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Logger builds the configured slog logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML parses "30s" style strings.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes d as a duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
