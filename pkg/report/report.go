package report

import (
	"sort"
	"strings"
	"time"

	"github.com/reportforge/reportforge/pkg/finding"
)

// SectionType identifies the kind of a report section.
type SectionType string

// Known section types. Stored values may use any case; NormalizeType
// upper-cases them before comparison.
const (
	SectionFinding          SectionType = "FINDING"
	SectionConnectivity     SectionType = "CONNECTIVITY"
	SectionExecutiveSummary SectionType = "EXECUTIVE_SUMMARY"
	SectionMethodology      SectionType = "METHODOLOGY"
	SectionConclusion       SectionType = "CONCLUSION"
	SectionCustom           SectionType = "CUSTOM"
)

// NormalizeType upper-cases and trims a stored section type.
func NormalizeType(t SectionType) SectionType {
	return SectionType(strings.ToUpper(strings.TrimSpace(string(t))))
}

// Report is a client deliverable owned by an engagement.
type Report struct {
	ID                 string     `json:"id"`
	EngagementID       string     `json:"engagementId"`
	Title              string     `json:"title"`
	ExecutiveSummary   string     `json:"executiveSummary,omitempty"`
	Methodology        string     `json:"methodology,omitempty"`
	ToolsAndTechniques string     `json:"toolsAndTechniques,omitempty"`
	Conclusion         string     `json:"conclusion,omitempty"`
	Sections           []Section  `json:"sections,omitempty"`
	Filename           string     `json:"filename,omitempty"`
	BriefingFilename   string     `json:"briefingFilename,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

// Section is an ordered unit of report content. FINDING sections carry
// exactly one Finding; every other type carries none.
type Section struct {
	ID       string                 `json:"id"`
	Type     SectionType            `json:"type"`
	Position int                    `json:"position"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content,omitempty"`
	Finding  *finding.ReportFinding `json:"finding,omitempty"`
}

// SortedSections returns a copy of the report's sections ordered by
// ascending Position. Sections sharing a position keep their stored order.
func (r *Report) SortedSections() []Section {
	if r == nil || len(r.Sections) == 0 {
		return nil
	}
	out := make([]Section, len(r.Sections))
	copy(out, r.Sections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// GeneratedFiles lists every generated file identity persisted on the report.
func (r *Report) GeneratedFiles() []string {
	if r == nil {
		return nil
	}
	var files []string
	if r.Filename != "" {
		files = append(files, r.Filename)
	}
	if r.BriefingFilename != "" {
		files = append(files, r.BriefingFilename)
	}
	return files
}

// Clone returns a deep copy of r.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		c.UpdatedAt = &t
	}
	if r.Sections != nil {
		c.Sections = make([]Section, len(r.Sections))
		for i, s := range r.Sections {
			s.Finding = s.Finding.Clone()
			c.Sections[i] = s
		}
	}
	return &c
}
