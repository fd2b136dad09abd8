package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"finitefield.org/webshop/internal/i18n"
	"finitefield.org/webshop/internal/shop"
)

//go:embed templates
var templateFS embed.FS

// View is the envelope every page and most fragments render with.
type View struct {
	Title        string
	Lang         string
	CSRFToken    string
	Path         string
	CartCount    int
	HideCartIcon bool
	Data         any
}

// WishlistButton is the toggle rendered on product cards.
type WishlistButton struct {
	ItemCode string
	Wished   bool
	Lang     string
}

// Renderer executes the embedded templates.
type Renderer struct {
	base      *template.Template
	pages     map[string]*template.Template
	bundle    *i18n.Bundle
	messages  *bluemonday.Policy
	documents *bluemonday.Policy
}

// New parses the layout, partials and every page.
func New(bundle *i18n.Bundle) (*Renderer, error) {
	if bundle == nil {
		return nil, errors.New("view: i18n bundle is required")
	}
	r := &Renderer{
		pages:     make(map[string]*template.Template),
		bundle:    bundle,
		messages:  newMessagePolicy(),
		documents: newDocumentPolicy(),
	}

	base, err := template.New("layout").Funcs(r.funcs()).ParseFS(templateFS, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	for _, file := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = clone
	}
	r.base = base
	return r, nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"t":     r.bundle.T,
		"money": Money,
		"urlc":  shop.EscapeComponent,
		"wish": func(itemCode string, wished bool, lang string) WishlistButton {
			return WishlistButton{ItemCode: itemCode, Wished: wished, Lang: lang}
		},
	}
}

// T translates key for lang.
func (r *Renderer) T(lang, key string) string { return r.bundle.T(lang, key) }

// Page renders a full page inside the layout.
func (r *Renderer) Page(w http.ResponseWriter, status int, page string, v View) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("view: unknown page %q", page)
	}
	return write(w, status, tmpl, "layout", v)
}

// Fragment renders a named partial without the layout.
func (r *Renderer) Fragment(w http.ResponseWriter, status int, name string, data any) error {
	return write(w, status, r.base, name, data)
}

func write(w http.ResponseWriter, status int, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
