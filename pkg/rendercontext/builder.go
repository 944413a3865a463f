package rendercontext

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/finding"
	"github.com/reportforge/reportforge/pkg/report"
	"github.com/reportforge/reportforge/pkg/reporterr"
)

// Builder turns report and engagement records into a Context.
// A Builder holds no per-request state and is safe for concurrent use.
type Builder struct {
	now func() time.Time
	loc *time.Location
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used to stamp GeneratedDate.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLocation sets the time zone dates are rendered in (default UTC).
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the context for the full report.
func (b *Builder) Build(r *report.Report, e *report.Engagement) (*Context, error) {
	if r == nil {
		return nil, reporterr.MissingData("report", "")
	}
	if e == nil {
		return nil, reporterr.MissingData("engagement", "")
	}

	sections := r.SortedSections()
	ctx := &Context{
		Report: ReportView{
			ID:                 r.ID,
			Title:              r.Title,
			ExecutiveSummary:   r.ExecutiveSummary,
			Methodology:        r.Methodology,
			ToolsAndTechniques: r.ToolsAndTechniques,
			Conclusion:         r.Conclusion,
			CreatedAt:          LongDate(&r.CreatedAt, b.loc),
			UpdatedAt:          LongDate(r.UpdatedAt, b.loc),
			Sections:           make([]SectionView, 0, len(sections)),
		},
		Engagement:    b.engagementView(e),
		Findings:      make([]FindingView, 0),
		GeneratedDate: b.now().In(b.loc).Format(defaults.DateLayout),
	}

	for i, s := range sections {
		sv := SectionView{
			ID:       s.ID,
			Type:     report.NormalizeType(s.Type),
			Position: s.Position,
			Title:    s.Title,
			Content:  s.Content,
		}

		switch sv.Type {
		case report.SectionFinding:
			if s.Finding == nil {
				return nil, reporterr.MissingData(
					fmt.Sprintf("sections[%d].finding", i),
					fmt.Sprintf("FINDING section %q has no finding", s.ID))
			}
			sv.FindingID = s.Finding.ID
			fv := findingView(s.Finding, s.Position)
			if !fv.Severity.IsValid() {
				return nil, reporterr.MissingData(
					fmt.Sprintf("sections[%d].finding.severity", i),
					fmt.Sprintf("finding %q has severity %q, want CRITICAL, HIGH, MEDIUM or LOW", s.Finding.ID, s.Finding.Severity))
			}
			fv.Number = len(ctx.Findings) + 1
			ctx.Findings = append(ctx.Findings, fv)
			ctx.SeverityCounts.add(fv.Severity)
		case report.SectionConnectivity:
			ctx.HasConnectivity = true
			ctx.Connectivity = append(ctx.Connectivity, sv)
		}

		ctx.Report.Sections = append(ctx.Report.Sections, sv)
	}

	ctx.TotalFindings = len(ctx.Findings)
	return ctx, nil
}

// BuildBriefing produces the context for the executive briefing: the full
// context plus percentages, category ranking, highlights and action lists.
func (b *Builder) BuildBriefing(r *report.Report, e *report.Engagement) (*Context, error) {
	ctx, err := b.Build(r, e)
	if err != nil {
		return nil, err
	}
	ctx.Briefing = &Briefing{
		Percentages:   Percentages(ctx.SeverityCounts),
		TopCategories: TopCategories(ctx.Findings, maxTopCategories),
		Highlights:    Highlights(ctx.Findings, maxHighlights),
	}
	ctx.Briefing.ImmediateActions, ctx.Briefing.ShortTermActions = Actions(ctx.Findings)
	return ctx, nil
}

func (b *Builder) engagementView(e *report.Engagement) EngagementView {
	typ := strings.TrimSpace(e.Type)
	if typ == "" {
		typ = defaults.EngagementType
	}
	return EngagementView{
		ID:           e.ID,
		Name:         e.Name,
		Status:       e.Status,
		Type:         typ,
		CustomerName: e.CustomerName(),
		StartDate:    LongDate(e.StartDate, b.loc),
		EndDate:      LongDate(e.EndDate, b.loc),
	}
}

func findingView(f *finding.ReportFinding, position int) FindingView {
	sev := finding.ParseSeverity(string(f.Severity))

	category := strings.TrimSpace(f.Category)
	if category == "" {
		category = defaults.FindingCategory
	}
	status := strings.TrimSpace(f.Status)
	if status == "" {
		status = defaults.FindingStatus
	}
	refs := []string{}
	if ref := strings.TrimSpace(f.Reference); ref != "" {
		refs = append(refs, ref)
	}

	return FindingView{
		Position:        position,
		ID:              f.ID,
		Title:           f.Title,
		Description:     f.Description,
		Recommendation:  f.Recommendation,
		Impact:          f.Impact,
		Severity:        sev,
		SeverityLabel:   sev.Label(),
		Category:        category,
		Status:          status,
		References:      refs,
		Tags:            append([]string(nil), f.Tags...),
		AffectedSystems: append([]string(nil), f.AffectedSystems...),
		Images:          imageViews(f.Images),
	}
}

func imageViews(images []finding.Image) []ImageView {
	out := make([]ImageView, 0, len(images))
	for _, img := range images {
		u, ok := safeImageURL(img.URL)
		if !ok {
			continue
		}
		out = append(out, ImageView{ID: img.ID, Caption: img.Caption, URL: u})
	}
	return out
}

var rasterDataPrefixes = []string{
	"data:image/png;", "data:image/jpeg;", "data:image/gif;", "data:image/webp;",
}

func safeImageURL(raw string) (template.URL, bool) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return template.URL(raw), true
	}
	for _, p := range rasterDataPrefixes {
		if strings.HasPrefix(lower, p) {
			return template.URL(raw), true
		}
	}
	return "", false
}

// LongDate formats t as "January 2, 2006" in loc, or "N/A" when t is nil or zero.
func LongDate(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return defaults.DateUnavailable
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(defaults.DateLayout)
}
