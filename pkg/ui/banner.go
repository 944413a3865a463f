package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/reportforge/reportforge/pkg/defaults"
)

// Version information, overridable at build time:
// go build -ldflags "-X github.com/reportforge/reportforge/pkg/ui.Version=1.0.0"
var (
	Version   = defaults.Version
	BuildDate = "unknown"
	Commit    = "dev"
)

var (
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

const bannerSeparator = "________________________________________________"

// PrintBanner writes the one-line product banner.
func PrintBanner(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", BannerStyle.Render(defaults.ToolNameDisplay), VersionStyle.Render("v"+Version))
	fmt.Fprintln(w, DividerStyle.Render(bannerSeparator))
}

// PrintVersion writes version, commit and build date.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s (commit %s, built %s)\n", defaults.ToolName, Version, Commit, BuildDate)
}

// printOption prints one setting as ` :: Name            : Value`.
func printOption(w io.Writer, name, value string) {
	fmt.Fprintf(w, " :: %s : %s\n", ConfigLabelStyle.Render(name), ConfigValueStyle.Render(value))
}

// PrintConfigBanner prints the effective settings before the server
// starts. Known keys come first in a fixed order, the rest sorted.
func PrintConfigBanner(w io.Writer, options map[string]string) {
	order := []string{"Listen", "Files", "Records", "Chrome", "Lock", "Tracing", "Rate Limit"}

	printed := make(map[string]bool, len(options))
	for _, name := range order {
		if value, ok := options[name]; ok && value != "" {
			printOption(w, name, value)
			printed[name] = true
		}
	}

	rest := make([]string, 0, len(options))
	for name, value := range options {
		if !printed[name] && value != "" {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		printOption(w, name, options[name])
	}

	fmt.Fprintf(w, "%s\n\n", DividerStyle.Render(bannerSeparator))
}

// PrintSection prints a section header followed by a divider.
func PrintSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	fmt.Fprintln(w, DividerStyle.Render(strings.Repeat("-", len(bannerSeparator))))
}

// PrintError writes a styled error line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render(Icon("✗", "x")), err)
}
