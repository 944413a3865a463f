// Package compiler turns a render context into a complete HTML document
// using the embedded html/template documents.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"

	"github.com/Masterminds/sprig/v3"

	"github.com/reportforge/reportforge/pkg/bufpool"
	"github.com/reportforge/reportforge/pkg/reporterr"
)

// Name identifies a document template.
type Name string

const (
	// Full is the portrait technical report.
	Full Name = "full"
	// Briefing is the landscape executive briefing.
	Briefing Name = "briefing"
)

const (
	templateDir   = "report"
	templateExt   = ".html.tmpl"
	partialsGlob  = "report/partials/*.html.tmpl"
	initialBufLen = 64 * 1024
)

// ErrTemplateNotFound is wrapped when no template exists for a name.
var ErrTemplateNotFound = errors.New("compiler: template not found")

// Compiler executes document templates from an fs.FS.
// Templates are parsed on every call so no state is shared between
// requests; a Compiler is safe for concurrent use.
type Compiler struct {
	fsys  fs.FS
	funcs template.FuncMap
}

// New creates a Compiler reading templates from fsys. The helper set is
// layered over sprig's HTML function map, so a helper overrides a sprig
// function of the same name.
func New(fsys fs.FS, helpers HelperSet) *Compiler {
	funcs := sprig.HtmlFuncMap()
	for name, fn := range helpers.funcMap() {
		funcs[name] = fn
	}
	return &Compiler{fsys: fsys, funcs: funcs}
}

// Path returns the template file path for name.
func Path(name Name) string {
	return path.Join(templateDir, string(name)+templateExt)
}

// Compile executes the named template against data and returns the
// complete document. On any failure no HTML is returned and the error is a
// *reporterr.TemplateCompilationError.
func (c *Compiler) Compile(ctx context.Context, name Name, data any) (string, error) {
	fail := func(err error) (string, error) {
		return "", &reporterr.TemplateCompilationError{Template: string(name), Cause: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	file := Path(name)
	if _, err := fs.Stat(c.fsys, file); err != nil {
		return fail(fmt.Errorf("%w: %s", ErrTemplateNotFound, file))
	}

	partials, err := fs.Glob(c.fsys, partialsGlob)
	if err != nil {
		return fail(fmt.Errorf("glob partials: %w", err))
	}

	base := path.Base(file)
	tmpl, err := template.New(base).
		Option("missingkey=error").
		Funcs(c.funcs).
		ParseFS(c.fsys, append(partials, file)...)
	if err != nil {
		return fail(fmt.Errorf("parse %s: %w", file, err))
	}

	buf := bufpool.GetSized(initialBufLen)
	defer bufpool.Put(buf)
	if err := tmpl.ExecuteTemplate(buf, base, data); err != nil {
		return fail(fmt.Errorf("execute %s: %w", file, err))
	}
	return buf.String(), nil
}
