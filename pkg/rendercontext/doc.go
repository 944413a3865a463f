// Package rendercontext builds the immutable value that document
// templates are executed against.
//
// A Builder normalizes a report, its ordered sections and nested findings
// together with the owning engagement into a Context: section types are
// upper-cased, findings are extracted in position order and defaulted,
// severities are tallied into four zero-filled buckets and dates are
// formatted in long form. The briefing variant adds severity percentages,
// a category ranking and short action lists.
//
// Building is a pure function of its inputs and the builder's clock. Input
// records are never mutated and a Context is never cached across requests.
package rendercontext
