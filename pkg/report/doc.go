// Package report provides the persisted records the rendering pipeline
// consumes: reports with their ordered sections, and the engagement and
// customer they belong to.
//
// Records are owned by upstream stores. The pipeline never mutates them;
// it reads them through accessor helpers such as SortedSections, which
// return copies ordered by Section.Position.
package report
