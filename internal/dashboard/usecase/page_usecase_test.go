package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"office-dashboard/internal/dashboard/adapter/persistence/redisstore"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/render"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyContact(ctx context.Context, notice model.ContactNotice) error {
	return m.Called(ctx, notice).Error(0)
}

type pageEnv struct {
	*testEnv
	pages    *PageService
	notifier *mockNotifier
}

func newPageEnv(t *testing.T) *pageEnv {
	t.Helper()
	env := newTestEnv(t)
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	renderer, err := render.NewRenderer()
	require.NoError(t, err)
	notifier := &mockNotifier{}
	pages := NewPageService(env.docs, renderer, redisstore.NewPageCache(client), notifier, 5*time.Minute, logger.Nop())
	pages.Register(env.bus)
	return &pageEnv{testEnv: env, pages: pages, notifier: notifier}
}

func TestRenderPublic(t *testing.T) {
	env := newPageEnv(t)
	page := env.createLandingPage(t, "spring-offer")
	ctx := context.Background()

	html, err := env.pages.RenderPublic(ctx, tenantAcme, "spring-offer")
	require.NoError(t, err)
	body := string(html)
	assert.Contains(t, body, "Spring offer")
	assert.Contains(t, body, `action="/p/acme/spring-offer/responses"`)
	assert.NotContains(t, body, "Preview")

	_, err = env.pages.RenderPublic(ctx, tenantGlobex, "spring-offer")
	assert.ErrorIs(t, err, apperrors.ErrPageNotFound)
	_, err = env.pages.RenderPublic(ctx, tenantAcme, "nope")
	assert.ErrorIs(t, err, apperrors.ErrPageNotFound)

	t.Run("served from cache until the page changes", func(t *testing.T) {
		stored, err := env.repo.Get(ctx, tenantAcme, model.KindLandingPages, page.ID)
		require.NoError(t, err)
		stored.Data["title"] = "Silently changed"
		require.NoError(t, env.repo.Update(ctx, tenantAcme, stored))

		html, err := env.pages.RenderPublic(ctx, tenantAcme, "spring-offer")
		require.NoError(t, err)
		assert.Contains(t, string(html), "Spring offer")

		_, err = env.docs.Update(adminCtx(), model.KindLandingPages, page.ID, map[string]interface{}{"title": "Summer offer"})
		require.NoError(t, err)
		html, err = env.pages.RenderPublic(ctx, tenantAcme, "spring-offer")
		require.NoError(t, err)
		assert.Contains(t, string(html), "Summer offer")
	})

	t.Run("unpublished pages are not public", func(t *testing.T) {
		_, err := env.docs.Update(adminCtx(), model.KindLandingPages, page.ID, map[string]interface{}{"published": false})
		require.NoError(t, err)
		_, err = env.pages.RenderPublic(ctx, tenantAcme, "spring-offer")
		assert.ErrorIs(t, err, apperrors.ErrPageNotFound)
	})
}

func TestRenderPublicPrefersPresentations(t *testing.T) {
	env := newPageEnv(t)
	ctx := context.Background()
	landing := env.fixture.LandingPage("lp-1", "shared")
	deck := env.fixture.LandingPage("deck-1", "shared")
	deck.Kind = model.KindPresentations
	deck.Data["title"] = "Quarterly deck"
	require.NoError(t, env.repo.Create(ctx, tenantAcme, landing))
	require.NoError(t, env.repo.Create(ctx, tenantAcme, deck))

	layout, err := env.pages.Layout(ctx, tenantAcme, "shared")
	require.NoError(t, err)
	assert.Equal(t, model.KindPresentations, layout.Kind)
	assert.Equal(t, "Quarterly deck", layout.Title)
}

func TestPageLayout(t *testing.T) {
	env := newPageEnv(t)
	env.createLandingPage(t, "spring-offer")

	layout, err := env.pages.Layout(context.Background(), tenantAcme, "spring-offer")
	require.NoError(t, err)
	assert.Equal(t, model.KindLandingPages, layout.Kind)
	assert.Equal(t, []string{
		model.SectionHero, model.SectionFeatures, model.SectionPricing,
		model.SectionQuestionnaire, model.SectionContact,
	}, layout.Sections)
	require.Len(t, layout.Questions, 2)
	assert.Equal(t, []string{"low", "high"}, layout.Questions[1].Options)
}

func TestPagePreview(t *testing.T) {
	env := newPageEnv(t)
	page := env.create(t, adminCtx(), model.KindPresentations, map[string]interface{}{
		"slug": "draft-deck", "title": "Draft deck",
	})

	html, err := env.pages.Preview(staffCtx(), model.KindPresentations, page.ID)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Preview (not published)")
	assert.Contains(t, string(html), "Draft deck")

	_, err = env.pages.Preview(context.Background(), model.KindPresentations, page.ID)
	assert.True(t, apperrors.IsAuthentication(err))

	_, err = env.pages.Preview(adminCtx(), "clients", page.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnknownKind)
}

func TestCollectQuestionnaire(t *testing.T) {
	env := newPageEnv(t)
	page := env.createLandingPage(t, "spring-offer")
	ctx := context.Background()

	res, err := env.pages.CollectResponse(ctx, tenantAcme, "spring-offer", model.ResponseSubmission{
		Type:    model.ResponseQuestionnaire,
		Answers: map[string]string{"goal": "  Grow revenue ", "budget": "low"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.NoticeSuccess, res.Notice.Level)
	assert.Equal(t, page.ID, res.Document.Data["pageId"])
	assert.Equal(t, model.KindLandingPages, res.Document.Data["pageKind"])
	assert.Equal(t, "questionnaire", res.Document.Data["type"])
	assert.Equal(t, map[string]interface{}{"goal": "Grow revenue", "budget": "low"}, res.Document.Data["answers"])

	stored, err := env.repo.Get(ctx, tenantAcme, model.KindResponses, res.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, "spring-offer", stored.Data["pageSlug"])
	env.notifier.AssertNotCalled(t, "NotifyContact", mock.Anything, mock.Anything)

	t.Run("answers are capped", func(t *testing.T) {
		res, err := env.pages.CollectResponse(ctx, tenantAcme, "spring-offer", model.ResponseSubmission{
			Type:    model.ResponseQuestionnaire,
			Answers: map[string]string{"goal": strings.Repeat("é", model.MaxAnswerLength+10)},
		})
		require.NoError(t, err)
		answers := res.Document.Data["answers"].(map[string]interface{})
		assert.Equal(t, model.MaxAnswerLength, len([]rune(answers["goal"].(string))))
	})
}

func TestCollectResponseValidation(t *testing.T) {
	env := newPageEnv(t)
	env.createLandingPage(t, "spring-offer")

	tests := []struct {
		name  string
		sub   model.ResponseSubmission
		field string
	}{
		{
			name:  "missing required answer",
			sub:   model.ResponseSubmission{Type: model.ResponseQuestionnaire, Answers: map[string]string{"budget": "low"}},
			field: "answers.goal",
		},
		{
			name:  "blank required answer",
			sub:   model.ResponseSubmission{Type: model.ResponseQuestionnaire, Answers: map[string]string{"goal": "   "}},
			field: "answers.goal",
		},
		{
			name:  "unknown question",
			sub:   model.ResponseSubmission{Type: model.ResponseQuestionnaire, Answers: map[string]string{"goal": "x", "color": "red"}},
			field: "answers.color",
		},
		{
			name:  "choice outside options",
			sub:   model.ResponseSubmission{Type: model.ResponseQuestionnaire, Answers: map[string]string{"goal": "x", "budget": "huge"}},
			field: "answers.budget",
		},
		{
			name:  "invalid email",
			sub:   model.ResponseSubmission{Type: model.ResponseContact, Email: "not-an-email", Message: "hi"},
			field: "email",
		},
		{
			name:  "display name in email",
			sub:   model.ResponseSubmission{Type: model.ResponseContact, Email: "Vera <visitor@example.com>", Message: "hi"},
			field: "email",
		},
		{
			name:  "missing email",
			sub:   model.ResponseSubmission{Type: model.ResponseContact, Email: "  ", Message: "hi"},
			field: "email",
		},
		{
			name:  "empty message",
			sub:   model.ResponseSubmission{Type: model.ResponseContact, Email: "visitor@example.com", Message: "  "},
			field: "message",
		},
		{
			name:  "unknown type",
			sub:   model.ResponseSubmission{Type: "survey"},
			field: "type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pages.CollectResponse(context.Background(), tenantAcme, "spring-offer", tt.sub)
			var verrs *apperrors.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Contains(t, verrs.Fields(), tt.field)
		})
	}

	res, err := env.docs.List(adminCtx(), model.KindResponses, model.Query{}, false)
	require.NoError(t, err)
	assert.Empty(t, res.Documents, "rejected submissions are not stored")
}

func TestCollectContact(t *testing.T) {
	env := newPageEnv(t)
	page := env.createLandingPage(t, "spring-offer")
	ctx := context.Background()

	env.notifier.On("NotifyContact", mock.Anything, mock.MatchedBy(func(n model.ContactNotice) bool {
		return n.To == "office@example.com" && n.Email == "visitor@example.com" && n.PageSlug == "spring-offer"
	})).Return(nil).Once()

	res, err := env.pages.CollectResponse(ctx, tenantAcme, "spring-offer", model.ResponseSubmission{
		Type:    model.ResponseContact,
		Name:    " Vera ",
		Email:   "visitor@example.com",
		Message: "Call me",
	})
	require.NoError(t, err)
	assert.Equal(t, "Vera", res.Document.Data["name"])
	assert.Equal(t, "contact", res.Document.Data["type"])
	env.notifier.AssertExpectations(t)

	t.Run("notification failure still stores the response", func(t *testing.T) {
		env.notifier.On("NotifyContact", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
		_, err := env.pages.CollectResponse(ctx, tenantAcme, "spring-offer", model.ResponseSubmission{
			Type: model.ResponseContact, Email: "other@example.com", Message: "Hello",
		})
		require.NoError(t, err)
	})

	t.Run("disabled section", func(t *testing.T) {
		_, err := env.docs.Update(adminCtx(), model.KindLandingPages, page.ID, map[string]interface{}{"showContactForm": false})
		require.NoError(t, err)
		_, err = env.pages.CollectResponse(ctx, tenantAcme, "spring-offer", model.ResponseSubmission{
			Type: model.ResponseContact, Email: "visitor@example.com", Message: "Call me",
		})
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.AsAppError(err).Type)
	})
}

func TestCollectPublishesResponseEvent(t *testing.T) {
	env := newPageEnv(t)
	env.createLandingPage(t, "spring-offer")
	env.notifier.On("NotifyContact", mock.Anything, mock.Anything).Return(nil)

	var events []model.CollectedResponse
	env.bus.Subscribe(eventbus.EventTypeResponseCollected, "test-recorder", func(_ context.Context, ev eventbus.Event) error {
		events = append(events, ev.Data().(model.CollectedResponse))
		return nil
	})

	res, err := env.pages.CollectResponse(context.Background(), tenantAcme, "spring-offer", model.ResponseSubmission{
		Type: model.ResponseQuestionnaire, Answers: map[string]string{"goal": "Grow"},
	})
	require.NoError(t, err)
	_, err = env.pages.CollectResponse(context.Background(), tenantAcme, "spring-offer", model.ResponseSubmission{
		Type: model.ResponseContact, Email: "visitor@example.com", Message: "Call me",
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, tenantAcme, events[0].TenantID)
	assert.Equal(t, "spring-offer", events[0].Page.Slug)
	assert.Equal(t, res.Document.ID, events[0].Response.ID)
	assert.Equal(t, "contact", events[1].Response.String("type"))
	env.notifier.AssertNumberOfCalls(t, "NotifyContact", 1)

	_, err = env.pages.CollectResponse(context.Background(), tenantAcme, "spring-offer", model.ResponseSubmission{
		Type: model.ResponseContact, Email: "bad", Message: "Call me",
	})
	require.Error(t, err)
	assert.Len(t, events, 2, "rejected submissions publish nothing")
}

func TestResponsesExport(t *testing.T) {
	env := newPageEnv(t)
	page := env.createLandingPage(t, "spring-offer")
	env.notifier.On("NotifyContact", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := env.pages.CollectResponse(ctx, tenantAcme, "spring-offer", model.ResponseSubmission{
		Type: model.ResponseQuestionnaire, Answers: map[string]string{"goal": "Grow, fast", "budget": "high"},
	})
	require.NoError(t, err)
	env.tick(time.Minute)
	_, err = env.pages.CollectResponse(ctx, tenantAcme, "spring-offer", model.ResponseSubmission{
		Type: model.ResponseContact, Name: "Vera", Email: "visitor@example.com", Message: "Call me",
	})
	require.NoError(t, err)

	docs, err := env.pages.Responses(adminCtx(), model.KindLandingPages, page.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "contact", docs[0].String("type"), "newest first")

	data, err := env.pages.ResponsesCSV(adminCtx(), model.KindLandingPages, page.ID)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "createdAt", "type", "goal", "budget", "name", "email", "message"}, rows[0])
	assert.Equal(t, []string{"contact", "", "", "Vera", "visitor@example.com", "Call me"}, rows[1][2:])
	assert.Equal(t, []string{"questionnaire", "Grow, fast", "high", "", "", ""}, rows[2][2:])

	_, err = env.pages.ResponsesCSV(context.Background(), model.KindLandingPages, page.ID)
	assert.True(t, apperrors.IsAuthentication(err))
}
