package finding

import "strings"

// Severity represents the severity level of a report finding.
// Values are uppercase strings matching the stored record convention.
type Severity string

const (
	// Critical represents immediate compromise (RCE, auth bypass).
	Critical Severity = "CRITICAL"

	// High represents significant impact requiring prompt fix (SQLi, stored XSS).
	High Severity = "HIGH"

	// Medium represents moderate impact (reflected XSS, CSRF).
	Medium Severity = "MEDIUM"

	// Low represents limited impact (verbose errors, minor info leak).
	Low Severity = "LOW"
)

// Ordered lists every severity from most to least severe.
// Chart bars and summary tables follow this order.
var Ordered = []Severity{Critical, High, Medium, Low}

// ParseSeverity normalizes s case-insensitively. Unknown values are
// returned upper-cased and report false from IsValid.
func ParseSeverity(s string) Severity {
	return Severity(strings.ToUpper(strings.TrimSpace(s)))
}

// IsValid reports whether s is one of the four severity buckets.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low:
		return true
	}
	return false
}

// Score returns a numeric score for sorting and comparison.
// Critical=4, High=3, Medium=2, Low=1, Unknown=0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 4
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// Label returns the display form used in documents ("Critical", "High", ...).
func (s Severity) Label() string {
	switch s {
	case Critical:
		return "Critical"
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	default:
		return "Unknown"
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}
