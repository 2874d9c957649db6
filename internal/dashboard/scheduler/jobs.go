package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	"office-dashboard/internal/dashboard/usecase"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/utils"
)

const (
	JobInvoiceSweep = "invoice-sweep"
	JobStreamTrim   = "stream-trim"
)

// InvoiceSweep marks sent invoices past their due date as overdue. Updates
// go through the document usecase so live listeners see them.
type InvoiceSweep struct {
	docs    usecase.DocumentUsecase
	tenants func(ctx context.Context) ([]string, error)
	now     func() time.Time
	logger  logger.Logger
}

func NewInvoiceSweep(docs usecase.DocumentUsecase, repo repository.DocumentRepository, log logger.Logger) *InvoiceSweep {
	return &InvoiceSweep{
		docs:    docs,
		tenants: repo.Tenants,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  log.WithComponent("invoice-sweep"),
	}
}

func (j *InvoiceSweep) Run(ctx context.Context) error {
	tenants, err := j.tenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	var errs []error
	for _, tenantID := range tenants {
		n, err := j.sweepTenant(utils.SystemContext(ctx, tenantID, JobInvoiceSweep))
		if n > 0 {
			j.logger.WithFields(map[string]interface{}{"tenant_id": tenantID, "overdue": n}).Info("invoices marked overdue")
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}
	return errors.Join(errs...)
}

func (j *InvoiceSweep) sweepTenant(ctx context.Context) (int, error) {
	now := j.now()
	marked := 0
	failed := make(map[string]bool)
	var errs []error
	for {
		res, err := j.docs.List(ctx, model.KindInvoices, model.Query{
			Filters: []model.Filter{
				{Field: "status", Operator: model.OperatorEqual, Value: "sent"},
				{Field: "dueDate", Operator: model.OperatorLessThan, Value: now},
			},
			OrderBy: "dueDate",
			Limit:   model.MaxLimit,
		}, false)
		if err != nil {
			return marked, err
		}
		progressed := false
		for _, inv := range res.Documents {
			if failed[inv.ID] {
				continue
			}
			progressed = true
			if _, err := j.docs.Update(ctx, model.KindInvoices, inv.ID, map[string]interface{}{"status": "overdue"}); err != nil {
				failed[inv.ID] = true
				errs = append(errs, fmt.Errorf("invoice %s: %w", inv.ID, err))
				continue
			}
			marked++
		}
		if !progressed {
			return marked, errors.Join(errs...)
		}
	}
}

// StreamTrim caps every change stream so resume history stays bounded.
type StreamTrim struct {
	store  repository.EventStore
	maxLen int64
	logger logger.Logger
}

func NewStreamTrim(store repository.EventStore, maxLen int64, log logger.Logger) *StreamTrim {
	return &StreamTrim{store: store, maxLen: maxLen, logger: log.WithComponent("stream-trim")}
}

func (j *StreamTrim) Run(ctx context.Context) error {
	n, err := j.store.Trim(ctx, j.maxLen)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{"streams": n, "max_length": j.maxLen}).Info("change streams trimmed")
	return nil
}
