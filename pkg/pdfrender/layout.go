package pdfrender

import (
	"fmt"
	"html"
	"strings"

	"github.com/chromedp/cdproto/page"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/strutil"
)

// A4 paper size in inches.
const (
	A4Width  = 8.27
	A4Height = 11.69
)

const cmPerInch = 2.54

// Orientation of the printed page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Margins in inches.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// UniformMargins returns the same margin on every side.
func UniformMargins(in float64) Margins {
	return Margins{Top: in, Right: in, Bottom: in, Left: in}
}

// Layout controls how a document is printed.
type Layout struct {
	Orientation     Orientation
	PaperWidth      float64
	PaperHeight     float64
	Margins         Margins
	PrintBackground bool

	// HeaderTemplate and FooterTemplate are Chrome print templates. Both
	// empty disables the header and footer band.
	HeaderTemplate string
	FooterTemplate string
}

// FullReportLayout is portrait A4 with 1.5 cm margins, a header naming the
// customer and classification and a footer with page numbering and
// attribution. Empty arguments fall back to defaults.
func FullReportLayout(customer, classification, attribution string) Layout {
	return Layout{
		Orientation:     Portrait,
		PaperWidth:      A4Width,
		PaperHeight:     A4Height,
		Margins:         UniformMargins(1.5 / cmPerInch),
		PrintBackground: true,
		HeaderTemplate:  HeaderTemplate(customer, classification),
		FooterTemplate:  FooterTemplate(attribution),
	}
}

// BriefingLayout is landscape A4 with 0.5 in margins and no header or footer.
func BriefingLayout() Layout {
	return Layout{
		Orientation:     Landscape,
		PaperWidth:      A4Width,
		PaperHeight:     A4Height,
		Margins:         UniformMargins(0.5),
		PrintBackground: true,
	}
}

// HasHeaderFooter reports whether the layout prints a header or footer band.
func (l Layout) HasHeaderFooter() bool {
	return l.HeaderTemplate != "" || l.FooterTemplate != ""
}

// Validate checks the paper and margin geometry.
func (l Layout) Validate() error {
	if l.PaperWidth <= 0 || l.PaperHeight <= 0 {
		return fmt.Errorf("invalid paper size %.2fx%.2fin", l.PaperWidth, l.PaperHeight)
	}
	m := l.Margins
	if m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0 {
		return fmt.Errorf("negative margin")
	}
	w, h := l.PaperWidth, l.PaperHeight
	if l.Orientation == Landscape {
		w, h = h, w
	}
	if m.Left+m.Right >= w || m.Top+m.Bottom >= h {
		return fmt.Errorf("margins exceed printable area")
	}
	return nil
}

// params converts the layout into a CDP print request. Chrome swaps the
// paper dimensions itself when landscape is set.
func (l Layout) params() *page.PrintToPDFParams {
	p := page.PrintToPDF().
		WithLandscape(l.Orientation == Landscape).
		WithPaperWidth(l.PaperWidth).
		WithPaperHeight(l.PaperHeight).
		WithMarginTop(l.Margins.Top).
		WithMarginRight(l.Margins.Right).
		WithMarginBottom(l.Margins.Bottom).
		WithMarginLeft(l.Margins.Left).
		WithPrintBackground(l.PrintBackground).
		WithDisplayHeaderFooter(l.HasHeaderFooter())

	if l.HasHeaderFooter() {
		// Chrome prints its own default band for an empty template.
		header, footer := l.HeaderTemplate, l.FooterTemplate
		if header == "" {
			header = emptyBand
		}
		if footer == "" {
			footer = emptyBand
		}
		p = p.WithHeaderTemplate(header).WithFooterTemplate(footer)
	}
	return p
}

const emptyBand = `<span></span>`

const bandStyle = `font-size:8px;color:#6b7280;width:100%;padding:0 1.5cm;` +
	`font-family:Helvetica,Arial,sans-serif;display:flex;justify-content:space-between;`

// HeaderTemplate renders the full-report header: customer on the left and
// classification on the right.
func HeaderTemplate(customer, classification string) string {
	customer = strutil.Truncate(strings.TrimSpace(customer), maxHeaderText)
	if customer == "" {
		customer = defaults.HeaderFallback
	}
	classification = strings.TrimSpace(classification)
	if classification == "" {
		classification = defaults.Classification
	}
	return fmt.Sprintf(`<div style="%s"><span>%s</span><span>%s</span></div>`,
		bandStyle, html.EscapeString(customer), html.EscapeString(classification))
}

// footerCell gives the three footer cells equal width so the page number
// sits at the true center whatever the attribution length.
const footerCell = `flex:1;`

// maxHeaderText bounds the customer name so it never wraps the header band.
const maxHeaderText = 60

// FooterTemplate renders the full-report footer: centered page numbering
// and the product attribution.
func FooterTemplate(attribution string) string {
	attribution = strings.TrimSpace(attribution)
	if attribution == "" {
		attribution = defaults.Attribution
	}
	return fmt.Sprintf(`<div style="%s"><span style="%s"></span>`+
		`<span style="%stext-align:center;"><span class="pageNumber"></span> / <span class="totalPages"></span></span>`+
		`<span style="%stext-align:right;">%s</span></div>`,
		bandStyle, footerCell, footerCell, footerCell, html.EscapeString(attribution))
}
