package model

// ResponseType distinguishes the two public forms of a page.
type ResponseType string

const (
	ResponseQuestionnaire ResponseType = "questionnaire"
	ResponseContact       ResponseType = "contact"
)

// MaxAnswerLength caps each free-text answer, in characters.
const MaxAnswerLength = 5000

// ResponseSubmission is the body posted by a visitor of a public page.
type ResponseSubmission struct {
	Type    ResponseType      `json:"type"`
	Answers map[string]string `json:"answers,omitempty"`
	Name    string            `json:"name,omitempty"`
	Email   string            `json:"email,omitempty"`
	Message string            `json:"message,omitempty"`
}

// ContactNotice is handed to the notifier for contact submissions.
type ContactNotice struct {
	TenantID  string
	PageTitle string
	PageSlug  string
	To        string
	Name      string
	Email     string
	Message   string
}

// CollectedResponse is the payload of the response.collected event.
type CollectedResponse struct {
	TenantID string
	Page     *Page
	Response *Document
}
