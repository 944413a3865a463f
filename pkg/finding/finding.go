package finding

// ReportFinding is a finding attached to exactly one FINDING section of a report.
type ReportFinding struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Recommendation  string   `json:"recommendation,omitempty"`
	Impact          string   `json:"impact,omitempty"`
	Reference       string   `json:"reference,omitempty"`
	Severity        Severity `json:"severity"`
	Category        string   `json:"category,omitempty"`
	Status          string   `json:"status,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	AffectedSystems []string `json:"affectedSystems,omitempty"`
	Images          []Image  `json:"images,omitempty"`
}

// Image is evidence attached to a finding. URL may be an http(s) URL or
// a data URI; html/template sanitizes anything else at render time.
type Image struct {
	ID      string `json:"id"`
	Caption string `json:"caption,omitempty"`
	URL     string `json:"url"`
}

// Clone returns a deep copy of f.
func (f *ReportFinding) Clone() *ReportFinding {
	if f == nil {
		return nil
	}
	c := *f
	c.Tags = append([]string(nil), f.Tags...)
	c.AffectedSystems = append([]string(nil), f.AffectedSystems...)
	c.Images = append([]Image(nil), f.Images...)
	return &c
}
