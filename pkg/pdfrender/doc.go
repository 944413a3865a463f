// Package pdfrender prints compiled HTML documents to PDF.
//
// ChromeRenderer drives a disposable headless Chrome per call through
// chromedp: the document is written to a private temporary directory,
// loaded over file://, allowed to reach network idle and then printed with
// the page layout of the requested variant. Every session moves through
// Idle, Rendering and then Emitted or Failed, and the browser is torn down
// on every exit path.
package pdfrender
