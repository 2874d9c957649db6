package model

import "time"

// Page kinds handled by the rendering engine.
const (
	KindPresentations = "presentations"
	KindLandingPages  = "landingPages"
	KindResponses     = "responses"
	KindMediaAssets   = "mediaAssets"
	KindInvoices      = "invoices"
)

// PageKinds are searched in this order when resolving a public slug.
var PageKinds = []string{KindPresentations, KindLandingPages}

// IsPageKind reports whether kind is rendered by the page engine.
func IsPageKind(kind string) bool {
	for _, k := range PageKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Section names in render order.
const (
	SectionHero          = "hero"
	SectionFeatures      = "features"
	SectionMedia         = "media"
	SectionPricing       = "pricing"
	SectionFAQ           = "faq"
	SectionQuestionnaire = "questionnaire"
	SectionContact       = "contact"
)

type Hero struct {
	Headline    string
	Subheadline string
	ImageURL    string
	CTALabel    string
	CTAURL      string
}

type Feature struct {
	Title       string
	Description string
	Icon        string
}

type MediaItem struct {
	URL     string
	Caption string
	Type    string
}

type FAQEntry struct {
	Question string
	Answer   string
}

// Question types for the questionnaire section.
const (
	QuestionText     = "text"
	QuestionTextarea = "textarea"
	QuestionChoice   = "choice"
)

type Question struct {
	ID       string
	Prompt   string
	Type     string
	Options  []string
	Required bool
}

// Page is the typed view of a presentation or landing page document.
type Page struct {
	ID           string
	Kind         string
	TenantID     string
	Slug         string
	Title        string
	Subtitle     string
	Published    bool
	PrimaryColor string
	NotifyEmail  string
	UpdatedAt    time.Time

	ShowHero          bool
	Hero              Hero
	ShowFeatures      bool
	Features          []Feature
	ShowMediaGrid     bool
	Media             []MediaItem
	ShowPricing       bool
	PricingHTML       string
	ShowFAQ           bool
	FAQ               []FAQEntry
	ShowQuestionnaire bool
	Questions         []Question
	ShowContactForm   bool
	ContactPrompt     string
}

// Question returns the question with id.
func (p *Page) Question(id string) (*Question, bool) {
	for i := range p.Questions {
		if p.Questions[i].ID == id {
			return &p.Questions[i], true
		}
	}
	return nil, false
}

// PageFromDocument maps the stored page-builder fields onto a Page.
func PageFromDocument(doc *Document) *Page {
	d := doc.Data
	p := &Page{
		ID:           doc.ID,
		Kind:         doc.Kind,
		TenantID:     doc.TenantID,
		UpdatedAt:    doc.UpdatedAt,
		Slug:         str(d, "slug"),
		Title:        str(d, "title"),
		Subtitle:     str(d, "subtitle"),
		Published:    boolean(d, "published"),
		PrimaryColor: str(d, "primaryColor"),
		NotifyEmail:  str(d, "notifyEmail"),

		ShowHero: boolean(d, "showHero"),
		Hero: Hero{
			Headline:    str(d, "heroHeadline"),
			Subheadline: str(d, "heroSubheadline"),
			ImageURL:    str(d, "heroImageUrl"),
			CTALabel:    str(d, "ctaLabel"),
			CTAURL:      str(d, "ctaUrl"),
		},
		ShowFeatures:      boolean(d, "showFeatures"),
		ShowMediaGrid:     boolean(d, "showMediaGrid"),
		ShowPricing:       boolean(d, "showPricing"),
		PricingHTML:       str(d, "pricingHtml"),
		ShowFAQ:           boolean(d, "showFaq"),
		ShowQuestionnaire: boolean(d, "showQuestionnaire"),
		ShowContactForm:   boolean(d, "showContactForm"),
		ContactPrompt:     str(d, "contactPrompt"),
	}
	for _, m := range objects(d, "features") {
		p.Features = append(p.Features, Feature{Title: str(m, "title"), Description: str(m, "description"), Icon: str(m, "icon")})
	}
	for _, m := range objects(d, "media") {
		p.Media = append(p.Media, MediaItem{URL: str(m, "url"), Caption: str(m, "caption"), Type: str(m, "type")})
	}
	for _, m := range objects(d, "faq") {
		p.FAQ = append(p.FAQ, FAQEntry{Question: str(m, "question"), Answer: str(m, "answer")})
	}
	for _, m := range objects(d, "questions") {
		q := Question{ID: str(m, "id"), Prompt: str(m, "prompt"), Type: str(m, "type"), Required: boolean(m, "required")}
		if q.Type == "" {
			q.Type = QuestionText
		}
		for _, o := range toSlice(m["options"]) {
			if s, ok := o.(string); ok {
				q.Options = append(q.Options, s)
			}
		}
		p.Questions = append(p.Questions, q)
	}
	return p
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolean(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func objects(m map[string]interface{}, key string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, item := range toSlice(m[key]) {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
