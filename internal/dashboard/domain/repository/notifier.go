package repository

import (
	"context"

	"office-dashboard/internal/dashboard/domain/model"
)

// Notifier tells the office about a contact form submission.
type Notifier interface {
	NotifyContact(ctx context.Context, notice model.ContactNotice) error
}
