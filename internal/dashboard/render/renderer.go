package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"office-dashboard/internal/dashboard/domain/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options tweak a render.
type Options struct {
	// Preview marks the page as a draft preview for staff.
	Preview bool
	// ResponseURL is where the questionnaire and contact forms post.
	ResponseURL string
}

type view struct {
	Page        *model.Page
	Sections    []string
	Preview     bool
	ResponseURL string
	Color       string
}

type sectionView struct {
	View view
	Name string
}

// Renderer holds the parsed page templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("page").Funcs(template.FuncMap{
		// pricingHtml is authored by staff in the dashboard editor.
		"trusted": func(s string) template.HTML { return template.HTML(s) },
		"isVideo": func(m model.MediaItem) bool { return m.Type == "video" },
		"sectionData": func(v view, name string) sectionView {
			return sectionView{View: v, Name: name}
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the full HTML document for p.
func (r *Renderer) Render(p *model.Page, opts Options) ([]byte, error) {
	color := p.PrimaryColor
	if color == "" {
		color = "#1f2937"
	}
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, "page.html", view{
		Page:        p,
		Sections:    Layout(p),
		Preview:     opts.Preview,
		ResponseURL: opts.ResponseURL,
		Color:       color,
	})
	if err != nil {
		return nil, fmt.Errorf("render page %s: %w", p.Slug, err)
	}
	return buf.Bytes(), nil
}
