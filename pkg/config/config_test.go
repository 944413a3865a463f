package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reportforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Browser.IdleTimeout.Std())
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "CONFIDENTIAL", cfg.Document.Classification)
	assert.Empty(t, cfg.Lock.RedisURL)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  rate_limit: 0
browser:
  idle_timeout: 45s
  no_sandbox: true
document:
  classification: INTERNAL
  timezone: Europe/Berlin
lock:
  redis_url: redis://localhost:6379/0
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Zero(t, cfg.Server.RateLimit)
	assert.Equal(t, 45*time.Second, cfg.Browser.IdleTimeout.Std())
	assert.True(t, cfg.Browser.NoSandbox)
	assert.Equal(t, "INTERNAL", cfg.Document.Classification)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Lock.RedisURL)
	// untouched sections keep defaults
	assert.Equal(t, 5*time.Second, cfg.Browser.TeardownTimeout.Std())
	assert.Equal(t, "data/files", cfg.Storage.FilesDir)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"unknown key", "server:\n  port: 80\n", ErrInvalidConfig},
		{"bad duration", "browser:\n  idle_timeout: soon\n", ErrInvalidConfig},
		{"negative duration", "browser:\n  idle_timeout: -1s\n", ErrInvalidConfig},
		{"missing addr", "server:\n  addr: \"\"\n", ErrMissingRequired},
		{"missing files dir", "storage:\n  files_dir: \"\"\n", ErrMissingRequired},
		{"bad level", "log:\n  level: loud\n", ErrInvalidConfig},
		{"bad format", "log:\n  format: xml\n", ErrInvalidConfig},
		{"bad timezone", "document:\n  timezone: Mars/Olympus\n", ErrInvalidConfig},
		{"zero attempts", "retry:\n  max_attempts: 0\n", ErrInvalidConfig},
		{"inverted delays", "retry:\n  init_delay: 5s\n  max_delay: 1s\n", ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REPORTFORGE_ADDR", ":7000")
	t.Setenv("REPORTFORGE_NO_SANDBOX", "true")
	t.Setenv("REPORTFORGE_IDLE_TIMEOUT", "10s")
	t.Setenv("REPORTFORGE_REDIS_URL", "redis://cache:6379")
	t.Setenv("REPORTFORGE_LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, "server:\n  addr: \":9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "env wins over file")
	assert.True(t, cfg.Browser.NoSandbox)
	assert.Equal(t, 10*time.Second, cfg.Browser.IdleTimeout.Std())
	assert.Equal(t, "redis://cache:6379", cfg.Lock.RedisURL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "REPORTFORGE_NO_SANDBOX" {
			return "maybe", true
		}
		return "", false
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = Default()
	require.NoError(t, cfg.ApplyEnv(noEnv))
	assert.Equal(t, Default(), cfg)
}

func TestDurationYAMLRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{Duration(90 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "d: 1m30s\n", string(out))
}

func TestLoggerHonorsFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	logger.Info("dropped")
	logger.Warn("kept", slog.String("report_id", "r-1"))

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"report_id":"r-1"`)

	buf.Reset()
	LogConfig{Level: "info", Format: "text"}.Logger(&buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
