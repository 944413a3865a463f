// Package templates embeds the document templates compiled into PDFs.
//
// Layout:
//
//	report/full.html.tmpl        full technical report (portrait)
//	report/briefing.html.tmpl    executive briefing (landscape)
//	report/partials/*.html.tmpl  shared definitions parsed with every document
package templates

import "embed"

// FS contains every bundled document template. Paths are relative to this
// directory.
//
//go:embed report/*.html.tmpl report/partials/*.html.tmpl
var FS embed.FS
