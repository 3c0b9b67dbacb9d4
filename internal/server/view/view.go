// Package view renders the console page from embedded html/template files.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/atinyakov/CatalogAdmin/internal/console"
	"github.com/atinyakov/CatalogAdmin/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Editor is the editor modal's data.
type Editor struct {
	Kind           console.EditorKind
	Draft          console.Draft
	CanAddImage    bool
	CanRemoveImage bool
}

// Heading is the modal title.
func (e Editor) Heading() string {
	if e.Kind == console.EditorCreate {
		return "New product"
	}
	return "Edit product"
}

// Page is everything the console page shows for one request.
type Page struct {
	Title         string
	CSRFToken     string
	Authenticated bool
	Username      string
	Busy          bool
	Mode          string
	Products      []models.Product
	Toasts        []console.Toast

	// At most one of Selected, Editor and Deleting is set.
	Selected *models.Product
	Editor   *Editor
	Deleting *models.Product
}

// NewPage builds the page data from a console view and the drained toasts.
func NewPage(v console.View, toasts []console.Toast, csrfToken string) Page {
	p := Page{
		Title:         "Product admin",
		CSRFToken:     csrfToken,
		Authenticated: v.Authenticated,
		Username:      v.Username,
		Busy:          v.Busy,
		Products:      v.Products,
		Toasts:        toasts,
	}
	if v.Mode != nil {
		p.Mode = v.Mode.Name()
	}
	switch m := v.Mode.(type) {
	case console.Viewing:
		p.Selected = &m.Product
	case console.Editing:
		d := m.Draft
		p.Editor = &Editor{
			Kind:           m.Kind,
			Draft:          d,
			CanAddImage:    d.CanAddImageSlot(),
			CanRemoveImage: d.CanRemoveImageSlot(),
		}
	case console.ConfirmingDelete:
		p.Deleting = &m.Product
	}
	return p
}

// Renderer executes the console templates.
type Renderer struct {
	tmpl *template.Template
}

// Scope hands a partial template the page together with the item it renders.
type Scope struct {
	Page Page
	Item any
}

var funcs = template.FuncMap{
	"price": models.FormatPrice,
	"scope": func(p Page, item any) Scope { return Scope{Page: p, Item: item} },
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the page to w. The page is fully rendered before anything
// is written, so a template error never leaves half a page behind.
func (r *Renderer) Render(w io.Writer, p Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
