// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for document and runtime defaults.
//
// Usage:
//
//	layout := pdfrender.FullReportLayout(name, defaults.Classification, defaults.Attribution)
//	w.Header().Set("Content-Type", defaults.ContentTypePDF)
//
// DO NOT hardcode labels like "CONFIDENTIAL" in templates or handlers.
// Reference the appropriate constant from this package instead.
package defaults

// Version is the current reportforge version
const Version = "1.3.0"

// ============================================================================
// TOOL IDENTITY
// ============================================================================

const (
	// ToolName is the lowercase tool name used in metric names, spans and paths.
	ToolName = "reportforge"

	// ToolNameDisplay is the human-facing product name.
	ToolNameDisplay = "ReportForge"

	// Attribution is printed in the footer of every full-report page.
	Attribution = "Generated by " + ToolNameDisplay
)

// ============================================================================
// DOCUMENT DEFAULTS
// ============================================================================
//
// Values substituted when an engagement or finding leaves a field empty.
// ============================================================================

const (
	// Classification is the header label when none is configured.
	Classification = "CONFIDENTIAL"

	// HeaderFallback replaces the customer name in page headers when absent.
	HeaderFallback = "Confidential"

	// EngagementType is used when the engagement has no type.
	EngagementType = "Penetration Test"

	// FindingCategory is used when a finding has no category.
	FindingCategory = "General"

	// FindingStatus is used when a finding has no status.
	FindingStatus = "Open"

	// DateUnavailable is rendered for missing or unparseable dates.
	DateUnavailable = "N/A"

	// DateLayout is the long-form date layout used in documents.
	DateLayout = "January 2, 2006"
)

// ============================================================================
// GENERATED FILES
// ============================================================================

const (
	// PDFExtension is appended to every generated file identity.
	PDFExtension = ".pdf"

	// BriefingPrefix distinguishes briefing identities from full-report identities.
	BriefingPrefix = "briefing-"

	// FileMode is the permission used for generated files.
	FileMode = 0o644

	// DirMode is the permission used for storage directories.
	DirMode = 0o755
)

// ============================================================================
// HTTP
// ============================================================================

const (
	// ContentTypeJSON is the content type of API responses.
	ContentTypeJSON = "application/json"

	// ContentTypePDF is the content type of served documents.
	ContentTypePDF = "application/pdf"

	// ListenAddr is the default gateway listen address.
	ListenAddr = ":8080"

	// FilesPath is the URL prefix under which generated files are served.
	FilesPath = "/files/"
)

// ============================================================================
// RETRY SETTINGS
// ============================================================================

const (
	// RetryMedium is the standard attempt count for transient render failures (3)
	RetryMedium = 3
)

// ============================================================================
// THROTTLING
// ============================================================================

const (
	// GenerateRPS is the sustained rate of generation requests per second.
	GenerateRPS = 2.0

	// GenerateBurst is the burst size for generation requests.
	GenerateBurst = 4
)
