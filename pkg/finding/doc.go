// Package finding provides the report finding record and its severity
// scale shared by the render context builder, the chart generator and
// the document templates.
//
// Severity is ordinal: CRITICAL > HIGH > MEDIUM > LOW. The four levels
// double as the buckets used for counting, charting and percentages.
//
// Usage:
//
//	sev := finding.ParseSeverity("high")
//	if sev.Score() >= finding.High.Score() {
//	    // escalate
//	}
package finding
