// Package notify delivers contact-form notifications to the office.
package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	"office-dashboard/internal/shared/logger"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

var _ repository.Notifier = (*SendGridNotifier)(nil)

// SendGridNotifier sends contact notices through the SendGrid v3 API.
type SendGridNotifier struct {
	key    string
	host   string
	from   *sgmail.Email
	logger logger.Logger
}

// NewSendGridNotifier creates a notifier. host may be empty for the public API.
func NewSendGridNotifier(key, host, fromName, fromEmail string, log logger.Logger) *SendGridNotifier {
	if host == "" {
		host = defaultHost
	}
	return &SendGridNotifier{
		key:    key,
		host:   host,
		from:   sgmail.NewEmail(fromName, fromEmail),
		logger: log.WithComponent("sendgrid-notifier"),
	}
}

func (n *SendGridNotifier) prepare(notice model.ContactNotice) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = subject(notice)
	p.AddTos(sgmail.NewEmail("", notice.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	if notice.Email != "" {
		m.SetReplyTo(sgmail.NewEmail(notice.Name, notice.Email))
	}
	m.AddContent(
		sgmail.NewContent("text/plain", textBody(notice)),
		sgmail.NewContent("text/html", htmlBody(notice)),
	)
	return m
}

func (n *SendGridNotifier) NotifyContact(ctx context.Context, notice model.ContactNotice) error {
	req := sendgrid.GetRequest(n.key, endpoint, n.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(n.prepare(notice))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected mail: status %d", res.StatusCode)
	}
	n.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"page_slug": notice.PageSlug,
		"status":    res.StatusCode,
	}).Info("contact notification sent")
	return nil
}

func subject(n model.ContactNotice) string {
	return fmt.Sprintf("New contact message from %s (%s)", n.PageTitle, n.PageSlug)
}

func textBody(n model.ContactNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s (/p/%s/%s)\n", n.PageTitle, n.TenantID, n.PageSlug)
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\n\n%s\n", n.Name, n.Email, n.Message)
	return b.String()
}

func htmlBody(n model.ContactNotice) string {
	return fmt.Sprintf("<p><strong>%s</strong> (%s) wrote on <em>%s</em>:</p><p>%s</p>",
		html.EscapeString(n.Name), html.EscapeString(n.Email), html.EscapeString(n.PageTitle),
		strings.ReplaceAll(html.EscapeString(n.Message), "\n", "<br>"))
}
