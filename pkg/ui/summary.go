package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/reportforge/reportforge/pkg/finding"
)

// RenderSummary describes one generated document for terminal output.
type RenderSummary struct {
	Variant  string
	Filename string
	Path     string
	Size     int64
	Elapsed  time.Duration
	// Counts holds finding totals in finding.Ordered order.
	Counts [4]int
}

// PrintRenderSummary writes the result of a render command.
func PrintRenderSummary(w io.Writer, s RenderSummary) {
	fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render(Icon("✓", "+")), TitleStyle.Render(s.Variant+" document generated"))
	printOption(w, "File", PathStyle.Render(s.Path))
	printOption(w, "Identity", s.Filename)
	printOption(w, "Size", FormatBytes(s.Size))
	printOption(w, "Elapsed", s.Elapsed.Round(time.Millisecond).String())

	fmt.Fprint(w, " :: ")
	for i, sev := range finding.Ordered {
		fmt.Fprintf(w, "%s %d  ", SeverityStyle(sev).Render(sev.Label()), s.Counts[i])
	}
	fmt.Fprintln(w)
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
