package ui

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func init() {
	SetNoColor(true)
}

func TestSetNoColor(t *testing.T) {
	assert.True(t, IsNoColor())
	assert.Equal(t, "plain", DividerStyle.Render("plain"))
}

func TestPrintConfigBannerOrder(t *testing.T) {
	var buf bytes.Buffer
	PrintConfigBanner(&buf, map[string]string{
		"Zeta":   "z",
		"Files":  "/data/files",
		"Listen": ":8080",
		"Alpha":  "a",
		"Empty":  "",
	})

	out := buf.String()
	assert.NotContains(t, out, "Empty")
	idx := func(s string) int { return strings.Index(out, s) }
	assert.Less(t, idx("Listen"), idx("Files"))
	assert.Less(t, idx("Files"), idx("Alpha"))
	assert.Less(t, idx("Alpha"), idx("Zeta"))
}

func TestPrintRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintRenderSummary(&buf, RenderSummary{
		Variant:  "full",
		Filename: "abc.pdf",
		Path:     "/data/files/abc.pdf",
		Size:     2048,
		Elapsed:  1500 * time.Millisecond,
		Counts:   [4]int{1, 0, 2, 3},
	})

	out := ansi.ReplaceAllString(buf.String(), "")
	for _, want := range []string{"full document generated", "/data/files/abc.pdf", "2.0 KiB", "1.5s"} {
		assert.Contains(t, out, want)
	}
	assert.Regexp(t, `Critical\s+1\b`, out)
	assert.Regexp(t, `High\s+0\b`, out)
	assert.Regexp(t, `Low\s+3\b`, out)
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KiB",
		1536:        "1.5 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatBytes(in), "FormatBytes(%d)", in)
	}
}

func TestPrintErrorAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), Version)
}

func TestActivityNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	a := StartActivity(&buf, "Rendering")
	a.Stop()
	a.Stop()
	require.Equal(t, "Rendering...\n", buf.String())
}
