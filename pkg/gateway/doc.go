// Package gateway exposes the rendering pipeline over HTTP.
//
// Routes:
//
//	POST   /api/reports/{id}/pdf       generate the full report
//	POST   /api/reports/{id}/briefing  generate the executive briefing
//	DELETE /api/reports/{id}/pdf       delete the generated full report
//	DELETE /api/reports/{id}           delete the report and its documents
//	GET    /files/{filename}           download a generated document
//	GET    /healthz                    readiness probe
//	GET    /metrics                    Prometheus metrics
//
// Generation re-runs the whole pipeline on renderer failures and is
// throttled by a token bucket. Errors are JSON bodies of the form
// {"error": kind, "message": text}; messages never carry causes or paths.
package gateway
