package catalog_test

import (
	"math"
	"testing"
	"time"

	"office-dashboard/internal/dashboard/catalog"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/shared/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKind(t *testing.T, c *catalog.Catalog, name string) *model.EntityKind {
	t.Helper()
	k, ok := c.Kind(name)
	require.True(t, ok, "kind %s", name)
	return k
}

func TestDefaultCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	kinds := c.Kinds()
	require.NotEmpty(t, kinds)
	for i := 1; i < len(kinds); i++ {
		assert.Less(t, kinds[i-1].Name, kinds[i].Name)
	}

	for _, name := range []string{"collaborators", "clients", "followUps", "invoices", "contracts",
		"portfolioItems", "aiSubscriptions", "trainingSections", "trainingSubsections", "trainingItems",
		"webContent", "presentations", "landingPages", "responses", "officeMenus", "officeSettings", "mediaAssets"} {
		mustKind(t, c, name)
	}

	pres := mustKind(t, c, "presentations")
	landing := mustKind(t, c, "landingPages")
	assert.Equal(t, len(pres.Fields), len(landing.Fields))

	assert.True(t, mustKind(t, c, "responses").ReadOnly)
	for _, k := range c.Writable() {
		assert.False(t, k.ReadOnly, k.Name)
	}
}

func TestLoadRejectsInconsistentCatalogs(t *testing.T) {
	cases := map[string]string{
		"duplicate kind": `
kinds:
  - {name: a, fields: [{name: x, type: string}]}
  - {name: a, fields: [{name: x, type: string}]}`,
		"unknown type": `
kinds:
  - {name: a, fields: [{name: x, type: colour}]}`,
		"missing ref target": `
kinds:
  - {name: a, fields: [{name: x, type: ref, ref: nowhere}]}`,
		"enum without options": `
kinds:
  - {name: a, fields: [{name: x, type: enum}]}`,
		"reserved field": `
kinds:
  - {name: a, fields: [{name: createdAt, type: date}]}`,
		"bad rule": `
kinds:
  - {name: a, rules: {write: "auth.role =="}, fields: [{name: x, type: string}]}`,
		"unknown search field": `
kinds:
  - {name: a, searchFields: [y], fields: [{name: x, type: string}]}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Load([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestValidateCreate(t *testing.T) {
	c := catalog.MustDefault()
	k := mustKind(t, c, "collaborators")

	clean, verrs := c.Validate(k, map[string]interface{}{
		"name":      "  Ana Lopez ",
		"email":     "ana@example.com",
		"startDate": "2024-02-01",
		"id":        "client-chosen",
		"createdAt": "2020-01-01",
	}, catalog.ModeCreate)
	require.Nil(t, verrs)

	assert.Equal(t, "Ana Lopez", clean["name"])
	assert.Equal(t, true, clean["active"], "default applied")
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), clean["startDate"])
	assert.NotContains(t, clean, "id")
	assert.NotContains(t, clean, "createdAt")
}

func TestValidateCreateErrors(t *testing.T) {
	c := catalog.MustDefault()
	k := mustKind(t, c, "collaborators")

	_, verrs := c.Validate(k, map[string]interface{}{
		"email":    "not-an-email",
		"nickname": "x",
	}, catalog.ModeCreate)
	require.NotNil(t, verrs)

	fields := verrs.Fields()
	assert.Equal(t, "Name is a required field", fields["name"])
	assert.Equal(t, "Email must be a valid email address", fields["email"])
	assert.Equal(t, "unknown field", fields["nickname"])
	assert.Equal(t, "email", verrs.Errors[0].Field, "errors sorted by field")
}

func TestValidateCoercion(t *testing.T) {
	c := catalog.MustDefault()
	k := mustKind(t, c, "invoices")

	clean, verrs := c.Validate(k, map[string]interface{}{
		"number":    "INV-1",
		"amount":    "1250.50",
		"issueDate": "2024-03-01T10:00:00-06:00",
	}, catalog.ModeCreate)
	require.Nil(t, verrs)
	assert.Equal(t, 1250.5, clean["amount"])
	assert.Equal(t, time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC), clean["issueDate"])
	assert.Equal(t, "draft", clean["status"])
	assert.Equal(t, "USD", clean["currency"])

	_, verrs = c.Validate(k, map[string]interface{}{
		"number":    "INV-2",
		"amount":    "-3",
		"issueDate": "yesterday",
		"status":    "lost",
	}, catalog.ModeCreate)
	require.NotNil(t, verrs)
	fields := verrs.Fields()
	assert.Contains(t, fields["amount"], "Amount must be 0 or greater")
	assert.Contains(t, fields["issueDate"], "must be a date")
	assert.Contains(t, fields["status"], "must be one of")

	sub := mustKind(t, c, "aiSubscriptions")
	clean, verrs = c.Validate(sub, map[string]interface{}{"tool": "Copilot", "billingDay": "15", "active": "false"}, catalog.ModeCreate)
	require.Nil(t, verrs)
	assert.Equal(t, int64(15), clean["billingDay"])
	assert.Equal(t, false, clean["active"])

	_, verrs = c.Validate(sub, map[string]interface{}{"tool": "Copilot", "billingDay": 40}, catalog.ModeCreate)
	require.NotNil(t, verrs)
	assert.Contains(t, verrs.Fields()["billingDay"], "31 or less")

	_, verrs = c.Validate(sub, map[string]interface{}{"tool": "Copilot", "billingDay": 2.5}, catalog.ModeCreate)
	require.NotNil(t, verrs)
	assert.Equal(t, "Billing day must be a whole number", verrs.Fields()["billingDay"])
}

func TestValidateRejectsNonFiniteNumbers(t *testing.T) {
	c := catalog.MustDefault()
	invoices := mustKind(t, c, "invoices")

	for _, raw := range []interface{}{"Inf", "+Inf", "-Inf", "Infinity", "NaN", math.Inf(1), math.NaN()} {
		_, verrs := c.Validate(invoices, map[string]interface{}{
			"number":    "INV-1",
			"amount":    raw,
			"issueDate": "2024-03-01",
		}, catalog.ModeCreate)
		require.NotNil(t, verrs, "amount %v", raw)
		assert.Equal(t, "Amount must be a number", verrs.Fields()["amount"], "amount %v", raw)
	}

	items := mustKind(t, c, "portfolioItems")
	for _, raw := range []interface{}{1e300, -1e300, "9223372036854775808", "Inf", math.Inf(-1)} {
		_, verrs := c.Validate(items, map[string]interface{}{"title": "Site", "order": raw}, catalog.ModeCreate)
		require.NotNil(t, verrs, "order %v", raw)
		assert.Equal(t, "Order must be a whole number", verrs.Fields()["order"], "order %v", raw)
	}

	clean, verrs := c.Validate(items, map[string]interface{}{"title": "Site", "order": "9007199254740992"}, catalog.ModeCreate)
	require.Nil(t, verrs)
	assert.Equal(t, int64(9007199254740992), clean["order"])
}

func TestValidateUpdate(t *testing.T) {
	c := catalog.MustDefault()
	k := mustKind(t, c, "collaborators")

	clean, verrs := c.Validate(k, map[string]interface{}{"phone": "", "department": "Ops"}, catalog.ModeUpdate)
	require.Nil(t, verrs)
	assert.Equal(t, map[string]interface{}{"phone": nil, "department": "Ops"}, clean, "only present fields, no defaults")

	_, verrs = c.Validate(k, map[string]interface{}{"name": "   "}, catalog.ModeUpdate)
	require.NotNil(t, verrs)
	assert.Equal(t, "Name is a required field", verrs.Fields()["name"])
}

func TestValidatePageBuilder(t *testing.T) {
	c := catalog.MustDefault()
	k := mustKind(t, c, "landingPages")

	clean, verrs := c.Validate(k, map[string]interface{}{
		"slug":          "spring-offer",
		"title":         "Spring offer",
		"showFaq":       true,
		"faq":           []interface{}{map[string]interface{}{"question": "Price?", "answer": "Free"}},
		"showMediaGrid": "on",
		"media":         []interface{}{map[string]interface{}{"url": "https://cdn.example.com/a.png"}},
		"questions": []interface{}{map[string]interface{}{
			"id": "budget", "prompt": "Budget?", "type": "choice", "options": "low, high",
		}},
	}, catalog.ModeCreate)
	require.Nil(t, verrs)
	assert.Equal(t, true, clean["showMediaGrid"])
	media := clean["media"].([]interface{})
	assert.Equal(t, "image", media[0].(map[string]interface{})["type"])
	q := clean["questions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, []interface{}{"low", "high"}, q["options"])
	assert.Equal(t, false, q["required"])

	_, verrs = c.Validate(k, map[string]interface{}{
		"slug":         "Spring Offer",
		"title":        "x",
		"primaryColor": "blue",
		"faq":          []interface{}{map[string]interface{}{"question": "Price?"}},
	}, catalog.ModeCreate)
	require.NotNil(t, verrs)
	fields := verrs.Fields()
	assert.Equal(t, "Slug may only contain lowercase letters, digits and dashes", fields["slug"])
	assert.Contains(t, fields, "primaryColor")
	assert.Equal(t, "Answer is a required field", fields["faq[0].answer"])
}

func TestValidateQuestionnaire(t *testing.T) {
	c := catalog.MustDefault()
	k := mustKind(t, c, "presentations")

	_, verrs := c.Validate(k, map[string]interface{}{
		"slug":  "intake",
		"title": "Intake",
		"questions": []interface{}{
			map[string]interface{}{"id": "goal", "prompt": "Goal?"},
			map[string]interface{}{"id": "goal", "prompt": "Again?"},
			map[string]interface{}{"id": "size", "prompt": "Size?", "type": "choice"},
		},
	}, catalog.ModeCreate)
	require.NotNil(t, verrs)
	fields := verrs.Fields()
	assert.Equal(t, "Id must be unique within the page", fields["questions[1].id"])
	assert.Equal(t, "Options are required for choice questions", fields["questions[2].options"])
	assert.NotContains(t, fields, "questions[0].id")

	_, verrs = c.Validate(k, map[string]interface{}{
		"questions": []interface{}{
			map[string]interface{}{"id": "size", "prompt": "Size?", "type": "choice", "options": "s,m,l"},
			map[string]interface{}{"id": "notes", "prompt": "Notes?", "type": "textarea"},
		},
	}, catalog.ModeUpdate)
	assert.Nil(t, verrs)
}

func TestAllowed(t *testing.T) {
	c := catalog.MustDefault()
	staff := utils.Principal{UserID: "u1", Email: "staff@example.com", TenantID: "t1", Role: "staff"}
	manager := utils.Principal{UserID: "u2", Email: "boss@example.com", TenantID: "t1", Role: "manager"}
	admin := utils.Principal{UserID: "u3", TenantID: "t1", Role: "admin"}
	system := utils.Principal{UserID: "system:cron", TenantID: "t1", Role: "system", System: true}

	ok, err := c.Allowed(staff, "invoices", catalog.ActionWrite, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = c.Allowed(manager, "invoices", catalog.ActionWrite, nil)
	assert.True(t, ok)
	ok, _ = c.Allowed(staff, "invoices", catalog.ActionRead, nil)
	assert.True(t, ok, "no read rule means any member")

	ok, _ = c.Allowed(manager, "officeSettings", catalog.ActionWrite, nil)
	assert.True(t, ok)
	ok, _ = c.Allowed(admin, "officeSettings", catalog.ActionWrite, nil)
	assert.True(t, ok, "admin bypasses rules")
	ok, _ = c.Allowed(system, "officeSettings", catalog.ActionWrite, nil)
	assert.True(t, ok)

	own := map[string]interface{}{"tool": "Copilot", "owner": "staff@example.com"}
	other := map[string]interface{}{"tool": "Copilot", "owner": "someone@example.com"}
	ok, _ = c.Allowed(staff, "aiSubscriptions", catalog.ActionRead, own)
	assert.True(t, ok)
	ok, _ = c.Allowed(staff, "aiSubscriptions", catalog.ActionRead, other)
	assert.False(t, ok)
	ok, _ = c.Allowed(staff, "aiSubscriptions", catalog.ActionRead, map[string]interface{}{"tool": "x"})
	assert.False(t, ok)

	_, err = c.Allowed(staff, "nope", catalog.ActionRead, nil)
	assert.Error(t, err)
}
