// Package pipeline runs document generation end to end: build the render
// context, draw the severity chart, compile the template, print the PDF
// and store it under a stable identity.
//
// Stages run in order and fail fast. There is no partial recovery and no
// retry here; callers that want to retry transient renderer failures
// re-run Generate as a whole.
package pipeline
