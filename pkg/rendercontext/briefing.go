package rendercontext

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/cases"

	"github.com/reportforge/reportforge/pkg/finding"
)

const (
	maxTopCategories = 5
	maxHighlights    = 6

	maxImmediateCritical = 3
	maxImmediateHigh     = 2
	maxShortTermHigh     = 2
	maxShortTermMedium   = 3
)

// Percentages converts counts into whole-number shares of the total,
// rounding half up. All four are 0 when nothing was counted. Build rejects
// findings outside the four buckets, so the counted total is the number
// of findings.
func Percentages(c SeverityCounts) SeverityPercentages {
	total := c.Total()
	if total == 0 {
		return SeverityPercentages{}
	}
	pct := func(n int) int {
		return int(math.Floor(float64(n)*100/float64(total) + 0.5))
	}
	return SeverityPercentages{
		Critical: pct(c.Critical),
		High:     pct(c.High),
		Medium:   pct(c.Medium),
		Low:      pct(c.Low),
	}
}

// TopCategories ranks finding categories by frequency, keeping at most
// limit entries. Ties keep first-seen order. Categories differing only
// in case are merged under their first-seen spelling.
func TopCategories(findings []FindingView, limit int) []CategoryCount {
	fold := cases.Fold()
	index := make(map[string]int)
	ranked := make([]CategoryCount, 0)

	for _, f := range findings {
		key := fold.String(f.Category)
		if i, ok := index[key]; ok {
			ranked[i].Count++
			continue
		}
		index[key] = len(ranked)
		ranked = append(ranked, CategoryCount{Name: f.Category, Count: 1})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Highlights returns the CRITICAL and HIGH findings, most severe first and
// in document order within a severity, keeping at most limit entries.
func Highlights(findings []FindingView, limit int) []FindingView {
	out := make([]FindingView, 0)
	for _, f := range findings {
		if f.Severity == finding.Critical || f.Severity == finding.High {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Score() > out[j].Severity.Score()
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Actions derives the briefing action lists from findings in document order.
// Immediate: up to 3 CRITICAL then the first 2 HIGH findings.
// Short-term: the next 2 HIGH then up to 3 MEDIUM findings.
func Actions(findings []FindingView) (immediate, shortTerm []string) {
	var critical, high, medium []string
	for _, f := range findings {
		switch f.Severity {
		case finding.Critical:
			critical = append(critical, f.Title)
		case finding.High:
			high = append(high, f.Title)
		case finding.Medium:
			medium = append(medium, f.Title)
		}
	}

	immediate = make([]string, 0, maxImmediateCritical+maxImmediateHigh)
	for _, t := range take(critical, 0, maxImmediateCritical) {
		immediate = append(immediate, fmt.Sprintf("Immediately remediate the critical finding %q.", t))
	}
	for _, t := range take(high, 0, maxImmediateHigh) {
		immediate = append(immediate, fmt.Sprintf("Prioritize a fix for the high-risk finding %q.", t))
	}

	shortTerm = make([]string, 0, maxShortTermHigh+maxShortTermMedium)
	for _, t := range take(high, maxImmediateHigh, maxShortTermHigh) {
		shortTerm = append(shortTerm, fmt.Sprintf("Plan remediation of the high-risk finding %q.", t))
	}
	for _, t := range take(medium, 0, maxShortTermMedium) {
		shortTerm = append(shortTerm, fmt.Sprintf("Schedule a fix for the medium-risk finding %q.", t))
	}
	return immediate, shortTerm
}

// take returns up to n items of s starting at offset.
func take(s []string, offset, n int) []string {
	if offset >= len(s) {
		return nil
	}
	s = s[offset:]
	if len(s) > n {
		s = s[:n]
	}
	return s
}
