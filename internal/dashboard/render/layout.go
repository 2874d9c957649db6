// Package render turns page-builder documents into public HTML.
package render

import (
	"strings"

	"office-dashboard/internal/dashboard/domain/model"
)

// Layout returns the visible sections of p in render order. A section is
// shown when its flag is on and it has something to show; the contact
// form only needs its flag.
func Layout(p *model.Page) []string {
	var sections []string
	add := func(name string, show bool) {
		if show {
			sections = append(sections, name)
		}
	}
	add(model.SectionHero, p.ShowHero && heroHasContent(p.Hero))
	add(model.SectionFeatures, p.ShowFeatures && len(p.Features) > 0)
	add(model.SectionMedia, p.ShowMediaGrid && len(p.Media) > 0)
	add(model.SectionPricing, p.ShowPricing && strings.TrimSpace(p.PricingHTML) != "")
	add(model.SectionFAQ, p.ShowFAQ && len(p.FAQ) > 0)
	add(model.SectionQuestionnaire, p.ShowQuestionnaire && len(p.Questions) > 0)
	add(model.SectionContact, p.ShowContactForm)
	return sections
}

// Visible reports whether section is part of the layout of p.
func Visible(p *model.Page, section string) bool {
	for _, s := range Layout(p) {
		if s == section {
			return true
		}
	}
	return false
}

func heroHasContent(h model.Hero) bool {
	return strings.TrimSpace(h.Headline) != "" || strings.TrimSpace(h.Subheadline) != "" || h.ImageURL != ""
}
