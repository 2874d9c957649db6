package testutil

import (
	"time"

	"office-dashboard/internal/dashboard/domain/model"
)

// DocumentFixture builds documents for repository and usecase tests.
type DocumentFixture struct {
	Now time.Time
}

func NewDocumentFixture() *DocumentFixture {
	return &DocumentFixture{Now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// Invoice returns an invoice document with the given id, amount and status.
func (f *DocumentFixture) Invoice(id string, amount float64, status string) *model.Document {
	return &model.Document{
		ID:   id,
		Kind: "invoices",
		Data: map[string]interface{}{
			"number":    "INV-" + id,
			"amount":    amount,
			"currency":  "USD",
			"status":    status,
			"issueDate": f.Now.AddDate(0, -1, 0),
			"dueDate":   f.Now.AddDate(0, 0, -1),
		},
		CreatedAt: f.Now,
		UpdatedAt: f.Now,
	}
}

// Client returns a client document.
func (f *DocumentFixture) Client(id, name string) *model.Document {
	return &model.Document{
		ID:        id,
		Kind:      "clients",
		Data:      map[string]interface{}{"name": name, "status": "lead"},
		CreatedAt: f.Now,
		UpdatedAt: f.Now,
	}
}

// LandingPage returns a published landing page with every section enabled.
func (f *DocumentFixture) LandingPage(id, slug string) *model.Document {
	return &model.Document{
		ID:   id,
		Kind: model.KindLandingPages,
		Data: map[string]interface{}{
			"slug":              slug,
			"title":             "Spring offer",
			"subtitle":          "Everything half price",
			"published":         true,
			"primaryColor":      "#0044cc",
			"notifyEmail":       "office@example.com",
			"showHero":          true,
			"heroHeadline":      "Grow faster",
			"ctaLabel":          "Book a call",
			"ctaUrl":            "https://example.com/book",
			"showFeatures":      true,
			"features":          []interface{}{map[string]interface{}{"title": "Fast", "description": "Really fast"}},
			"showMediaGrid":     true,
			"media":             []interface{}{},
			"showPricing":       true,
			"pricingHtml":       "<table><tr><td>Basic</td><td>$10</td></tr></table>",
			"showFaq":           false,
			"faq":               []interface{}{map[string]interface{}{"question": "Hidden?", "answer": "Yes"}},
			"showQuestionnaire": true,
			"questions": []interface{}{
				map[string]interface{}{"id": "goal", "prompt": "What is your goal?", "type": "textarea", "required": true},
				map[string]interface{}{"id": "budget", "prompt": "Budget", "type": "choice", "options": []interface{}{"low", "high"}},
			},
			"showContactForm": true,
			"contactPrompt":   "Write to us",
		},
		CreatedAt: f.Now,
		UpdatedAt: f.Now,
	}
}
