package mail

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/flosch/pongo2/v6"
)

// Template names.
const (
	TemplateApproval = "approval.html"
	TemplateLockout  = "lockout.html"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer turns a named template and its bindings into HTML.
type Renderer interface {
	Render(name string, bindings map[string]any) (string, error)
}

// PongoRenderer renders Django-syntax templates. Parsed templates are cached
// by the underlying set.
type PongoRenderer struct {
	set *pongo2.TemplateSet
}

// NewRenderer loads the embedded templates.
func NewRenderer() *PongoRenderer {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err) // embed path is fixed at compile time
	}
	return NewRendererFS(sub)
}

// NewRendererFS loads templates from fsys, e.g. an override directory.
func NewRendererFS(fsys fs.FS) *PongoRenderer {
	return &PongoRenderer{set: pongo2.NewSet("mail", pongo2.NewFSLoader(fsys))}
}

func (r *PongoRenderer) Render(name string, bindings map[string]any) (string, error) {
	tpl, err := r.set.FromCache(name)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", name, err)
	}
	out, err := tpl.Execute(pongo2.Context(bindings))
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return out, nil
}
