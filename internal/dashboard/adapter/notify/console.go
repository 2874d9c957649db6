package notify

import (
	"context"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	"office-dashboard/internal/shared/logger"
)

var _ repository.Notifier = (*ConsoleNotifier)(nil)

// ConsoleNotifier logs notices instead of mailing them.
type ConsoleNotifier struct {
	logger logger.Logger
}

func NewConsoleNotifier(log logger.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: log.WithComponent("console-notifier")}
}

func (n *ConsoleNotifier) NotifyContact(ctx context.Context, notice model.ContactNotice) error {
	n.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"to":        notice.To,
		"subject":   subject(notice),
		"from_name": notice.Name,
	}).Info(textBody(notice))
	return nil
}
