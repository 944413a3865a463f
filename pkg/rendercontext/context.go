package rendercontext

import (
	"html/template"

	"github.com/reportforge/reportforge/pkg/finding"
	"github.com/reportforge/reportforge/pkg/report"
)

// Context is the fully normalized data a document template is bound to.
type Context struct {
	Report          ReportView
	Engagement      EngagementView
	Findings        []FindingView
	SeverityCounts  SeverityCounts
	TotalFindings   int
	HasConnectivity bool
	Connectivity    []SectionView
	GeneratedDate   string

	// ChartImage is a data URI set by WithChart. It is typed so that
	// html/template does not sanitize the data: scheme away.
	ChartImage template.URL

	// Briefing is nil for the full report.
	Briefing *Briefing
}

// WithChart returns a copy of c carrying the chart image.
func (c *Context) WithChart(dataURI string) *Context {
	cp := *c
	cp.ChartImage = template.URL(dataURI)
	return &cp
}

// ReportView is the report as seen by templates.
type ReportView struct {
	ID                 string
	Title              string
	ExecutiveSummary   string
	Methodology        string
	ToolsAndTechniques string
	Conclusion         string
	CreatedAt          string
	UpdatedAt          string
	Sections           []SectionView
}

// SectionView is a section with its type upper-cased.
type SectionView struct {
	ID        string
	Type      report.SectionType
	Position  int
	Title     string
	Content   string
	FindingID string
}

// EngagementView is the engagement with customer fields flattened.
type EngagementView struct {
	ID           string
	Name         string
	Status       string
	Type         string
	CustomerName string
	StartDate    string
	EndDate      string
}

// FindingView is a finding with defaults applied and its 1-based document number.
type FindingView struct {
	Number          int
	Position        int
	ID              string
	Title           string
	Description     string
	Recommendation  string
	Impact          string
	Severity        finding.Severity
	SeverityLabel   string
	Category        string
	Status          string
	References      []string
	Tags            []string
	AffectedSystems []string
	Images          []ImageView
}

// ImageView is finding evidence. URL is only populated for http(s)
// links and raster data URIs; anything else is dropped.
type ImageView struct {
	ID      string
	Caption string
	URL     template.URL
}

// SeverityCounts tallies findings per bucket. All four buckets are
// always present; findings with an unrecognized severity are not counted.
type SeverityCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// Of returns the count for s, or 0 for an unrecognized severity.
func (c SeverityCounts) Of(s finding.Severity) int {
	switch s {
	case finding.Critical:
		return c.Critical
	case finding.High:
		return c.High
	case finding.Medium:
		return c.Medium
	case finding.Low:
		return c.Low
	}
	return 0
}

// Total is the sum of the four buckets.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}

// Ordered returns the counts in finding.Ordered order.
func (c SeverityCounts) Ordered() [4]int {
	return [4]int{c.Critical, c.High, c.Medium, c.Low}
}

func (c *SeverityCounts) add(s finding.Severity) {
	switch s {
	case finding.Critical:
		c.Critical++
	case finding.High:
		c.High++
	case finding.Medium:
		c.Medium++
	case finding.Low:
		c.Low++
	}
}

// Briefing holds the fields only the executive briefing renders.
type Briefing struct {
	Percentages      SeverityPercentages
	TopCategories    []CategoryCount
	Highlights       []FindingView
	ImmediateActions []string
	ShortTermActions []string
}

// SeverityPercentages are whole-number shares of the counted findings.
type SeverityPercentages struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// Sum returns the total of the four percentages.
func (p SeverityPercentages) Sum() int {
	return p.Critical + p.High + p.Medium + p.Low
}

// CategoryCount is one entry of the category frequency ranking.
type CategoryCount struct {
	Name  string
	Count int
}
