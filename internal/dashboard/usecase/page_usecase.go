package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"office-dashboard/internal/dashboard/catalog"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	"office-dashboard/internal/dashboard/render"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/metrics"
	"office-dashboard/internal/shared/utils"
)

// PageLayout is the public description of a page's visible sections.
type PageLayout struct {
	Kind      string           `json:"kind"`
	Slug      string           `json:"slug"`
	Title     string           `json:"title"`
	Sections  []string         `json:"sections"`
	Questions []model.Question `json:"questions,omitempty"`
}

// PageUsecase renders public pages and collects visitor responses.
type PageUsecase interface {
	RenderPublic(ctx context.Context, tenantID, slug string) ([]byte, error)
	Layout(ctx context.Context, tenantID, slug string) (*PageLayout, error)
	Preview(ctx context.Context, kind, id string) ([]byte, error)
	CollectResponse(ctx context.Context, tenantID, slug string, sub model.ResponseSubmission) (*model.MutationResult, error)
	Responses(ctx context.Context, kind, id string) ([]*model.Document, error)
	ResponsesCSV(ctx context.Context, kind, id string) ([]byte, error)
}

// PageService implements PageUsecase.
type PageService struct {
	docs     *DocumentService
	repo     repository.DocumentRepository
	renderer *render.Renderer
	cache    repository.PageCache
	notifier repository.Notifier
	cacheTTL time.Duration
	logger   logger.Logger
}

var _ PageUsecase = (*PageService)(nil)

// NewPageService wires the page engine. cache and notifier may be nil.
func NewPageService(docs *DocumentService, renderer *render.Renderer, cache repository.PageCache, notifier repository.Notifier, cacheTTL time.Duration, log logger.Logger) *PageService {
	return &PageService{
		docs:     docs,
		repo:     docs.repo,
		renderer: renderer,
		cache:    cache,
		notifier: notifier,
		cacheTTL: cacheTTL,
		logger:   log.WithComponent("pages"),
	}
}

// Register invalidates a tenant's cached pages whenever one of its page
// documents changes, and reacts to collected responses.
func (s *PageService) Register(bus *eventbus.EventBus) {
	bus.Subscribe(eventbus.EventTypeResponseCollected, "response-metrics", func(_ context.Context, ev eventbus.Event) error {
		if collected, ok := ev.Data().(model.CollectedResponse); ok {
			metrics.ResponseCollected(collected.Response.String("type"))
		}
		return nil
	})
	bus.Subscribe(eventbus.EventTypeResponseCollected, "contact-notifier", s.notifyContact)

	bus.SubscribeMany([]string{
		eventbus.EventTypeDocumentCreated,
		eventbus.EventTypeDocumentUpdated,
		eventbus.EventTypeDocumentDeleted,
	}, "page-cache", func(ctx context.Context, ev eventbus.Event) error {
		change, ok := ev.Data().(model.ChangeEvent)
		if !ok || !model.IsPageKind(change.Kind) || s.cache == nil {
			return nil
		}
		return s.cache.InvalidateTenant(ctx, change.TenantID)
	})
}

// findPublished resolves a public slug: presentations first, then
// landing pages. Unpublished pages do not exist publicly.
func (s *PageService) findPublished(ctx context.Context, tenantID, slug string) (*model.Page, error) {
	for _, kind := range model.PageKinds {
		docs, err := s.repo.List(ctx, tenantID, kind, model.Query{
			Filters: []model.Filter{
				{Field: "slug", Operator: model.OperatorEqual, Value: slug},
				{Field: "published", Operator: model.OperatorEqual, Value: true},
			},
			OrderBy: model.KeyCreatedAt,
			Limit:   1,
		}, nil)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			docs[0].Kind = kind
			docs[0].TenantID = tenantID
			return model.PageFromDocument(docs[0]), nil
		}
	}
	return nil, apperrors.ErrPageNotFound
}

// ResponseURL is the collector endpoint of a public page.
func ResponseURL(tenantID, slug string) string {
	return "/p/" + tenantID + "/" + slug + "/responses"
}

func (s *PageService) RenderPublic(ctx context.Context, tenantID, slug string) ([]byte, error) {
	if s.cache != nil {
		if html, ok, err := s.cache.Get(ctx, tenantID, slug); err == nil && ok {
			return html, nil
		} else if err != nil {
			s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("page cache read failed")
		}
	}
	p, err := s.findPublished(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}
	html, err := s.renderer.Render(p, render.Options{ResponseURL: ResponseURL(tenantID, slug)})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, slug, html, s.cacheTTL); err != nil {
			s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("page cache write failed")
		}
	}
	return html, nil
}

func (s *PageService) Layout(ctx context.Context, tenantID, slug string) (*PageLayout, error) {
	p, err := s.findPublished(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}
	out := &PageLayout{Kind: p.Kind, Slug: p.Slug, Title: p.Title, Sections: render.Layout(p)}
	if out.Sections == nil {
		out.Sections = []string{}
	}
	if render.Visible(p, model.SectionQuestionnaire) {
		out.Questions = p.Questions
	}
	return out, nil
}

func (s *PageService) loadPage(ctx context.Context, kind, id string) (*model.Page, error) {
	if !model.IsPageKind(kind) {
		return nil, fmt.Errorf("%w: %s is not a page kind", apperrors.ErrUnknownKind, kind)
	}
	doc, err := s.docs.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return model.PageFromDocument(doc), nil
}

func (s *PageService) Preview(ctx context.Context, kind, id string) ([]byte, error) {
	p, err := s.loadPage(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(p, render.Options{Preview: true, ResponseURL: ResponseURL(p.TenantID, p.Slug)})
}

// CollectResponse validates a visitor submission against the page and
// stores it as a responses document on behalf of the system.
func (s *PageService) CollectResponse(ctx context.Context, tenantID, slug string, sub model.ResponseSubmission) (*model.MutationResult, error) {
	p, err := s.findPublished(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"pageId":   p.ID,
		"pageKind": p.Kind,
		"pageSlug": p.Slug,
		"type":     string(sub.Type),
	}
	switch sub.Type {
	case model.ResponseQuestionnaire:
		if !render.Visible(p, model.SectionQuestionnaire) {
			return nil, apperrors.NewValidationError("this page does not accept questionnaire responses")
		}
		answers, verrs := validateAnswers(p, sub.Answers)
		if verrs != nil {
			return nil, verrs
		}
		data["answers"] = answers
	case model.ResponseContact:
		if !render.Visible(p, model.SectionContact) {
			return nil, apperrors.NewValidationError("this page does not accept contact messages")
		}
		name, email, message, verrs := validateContact(sub)
		if verrs != nil {
			return nil, verrs
		}
		data["name"], data["email"], data["message"] = name, email, message
	default:
		return nil, apperrors.NewValidationErrors().Add("type", "type must be questionnaire or contact", string(sub.Type))
	}

	sysCtx := utils.SystemContext(ctx, tenantID, "collector")
	res, err := s.docs.Create(sysCtx, model.KindResponses, data)
	if err != nil {
		return nil, err
	}
	s.publish(sysCtx, model.CollectedResponse{TenantID: tenantID, Page: p, Response: res.Document})

	res.Notice.Message = "Thank you, your response was received"
	return res, nil
}

func (s *PageService) publish(ctx context.Context, collected model.CollectedResponse) {
	if s.docs.events == nil {
		return
	}
	ev := eventbus.NewEvent(eventbus.EventTypeResponseCollected, collected, "pages")
	if err := s.docs.events.Publish(ctx, ev); err != nil {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"page_slug": collected.Page.Slug,
			"error":     err.Error(),
		}).Error("response event delivery failed")
	}
}

// notifyContact mails the page owner about a contact response. Delivery
// is attempted once; a failure is logged and the response stays stored.
func (s *PageService) notifyContact(ctx context.Context, ev eventbus.Event) error {
	collected, ok := ev.Data().(model.CollectedResponse)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Data())
	}
	p, doc := collected.Page, collected.Response
	if s.notifier == nil || p.NotifyEmail == "" || doc.String("type") != string(model.ResponseContact) {
		return nil
	}
	notice := model.ContactNotice{
		TenantID:  collected.TenantID,
		PageTitle: p.Title,
		PageSlug:  p.Slug,
		To:        p.NotifyEmail,
		Name:      doc.String("name"),
		Email:     doc.String("email"),
		Message:   doc.String("message"),
	}
	if err := s.notifier.NotifyContact(ctx, notice); err != nil {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{"page_slug": p.Slug, "error": err.Error()}).Error("contact notification failed")
	}
	return nil
}

func validateAnswers(p *model.Page, answers map[string]string) (map[string]interface{}, *apperrors.ValidationErrors) {
	verrs := apperrors.NewValidationErrors()
	clean := make(map[string]interface{}, len(answers))
	for id, raw := range answers {
		q, ok := p.Question(id)
		if !ok {
			verrs.Add("answers."+id, "unknown question", nil)
			continue
		}
		text := capText(strings.TrimSpace(raw))
		if text == "" {
			continue
		}
		if q.Type == model.QuestionChoice && !contains(q.Options, text) {
			verrs.Add("answers."+id, "answer must be one of the offered options", text)
			continue
		}
		clean[id] = text
	}
	for _, q := range p.Questions {
		if _, answered := clean[q.ID]; q.Required && !answered {
			verrs.Add("answers."+q.ID, "an answer is required", nil)
		}
	}
	if len(clean) == 0 && !verrs.HasErrors() {
		verrs.Add("answers", "at least one answer is required", nil)
	}
	if verrs.HasErrors() {
		verrs.Sort()
		return nil, verrs
	}
	return clean, nil
}

func validateContact(sub model.ResponseSubmission) (string, string, string, *apperrors.ValidationErrors) {
	verrs := apperrors.NewValidationErrors()
	name := capText(strings.TrimSpace(sub.Name))
	email := strings.TrimSpace(sub.Email)
	message := capText(strings.TrimSpace(sub.Message))

	if catalog.ValidateVar(email, "required,email") != nil {
		verrs.Add("email", "a valid email address is required", email)
	}
	if message == "" {
		verrs.Add("message", "message cannot be empty", nil)
	}
	if verrs.HasErrors() {
		verrs.Sort()
		return "", "", "", verrs
	}
	return name, email, message, nil
}

// capText truncates s to MaxAnswerLength characters.
func capText(s string) string {
	if utf8.RuneCountInString(s) <= model.MaxAnswerLength {
		return s
	}
	return string([]rune(s)[:model.MaxAnswerLength])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Responses lists a page's responses, newest first.
func (s *PageService) Responses(ctx context.Context, kind, id string) ([]*model.Document, error) {
	p, err := s.loadPage(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	res, err := s.docs.List(ctx, model.KindResponses, model.Query{
		Filters:   []model.Filter{{Field: "pageId", Operator: model.OperatorEqual, Value: p.ID}},
		OrderBy:   model.KeyCreatedAt,
		Direction: model.Descending,
		Limit:     model.MaxLimit,
	}, false)
	if err != nil {
		return nil, err
	}
	return res.Documents, nil
}

// ResponsesCSV exports responses with one column per question followed by
// the contact fields.
func (s *PageService) ResponsesCSV(ctx context.Context, kind, id string) ([]byte, error) {
	p, err := s.loadPage(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.Responses(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]string, 0, len(p.Questions))
	known := make(map[string]bool)
	for _, q := range p.Questions {
		questionIDs = append(questionIDs, q.ID)
		known[q.ID] = true
	}
	// answers to questions removed since they were collected
	var extra []string
	for _, d := range docs {
		if answers, ok := d.Data["answers"].(map[string]interface{}); ok {
			for qid := range answers {
				if !known[qid] {
					known[qid] = true
					extra = append(extra, qid)
				}
			}
		}
	}
	sort.Strings(extra)
	questionIDs = append(questionIDs, extra...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := append([]string{"id", "createdAt", "type"}, questionIDs...)
	header = append(header, "name", "email", "message")
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, d := range docs {
		row := []string{d.ID, d.CreatedAt.Format(time.RFC3339), d.String("type")}
		answers, _ := d.Data["answers"].(map[string]interface{})
		for _, qid := range questionIDs {
			v, _ := answers[qid].(string)
			row = append(row, v)
		}
		row = append(row, d.String("name"), d.String("email"), d.String("message"))
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
